package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/rehabreps/internal/export"
	"github.com/claude/rehabreps/internal/profile"
	"github.com/claude/rehabreps/internal/replay"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	exercise := flag.String("exercise", "ArmRaise", "exercise profile to detect against")
	profilesPath := flag.String("profiles", "", "optional YAML file of extra exercise profiles")
	csvOut := flag.String("csv", "", "write per-rep results to this CSV file")
	force := flag.Bool("force", false, "replay even if the file was already processed")
	dryRun := flag.Bool("dry-run", false, "replay without recording to history")
	history := flag.Bool("history", false, "print recent replay history and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("rehabreps-replay", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	hist, err := replay.OpenHistoryDB(filepath.Join(homeDir, ".rehabreps-replay"))
	if err != nil {
		log.Error("failed to open history database", "error", err)
		os.Exit(1)
	}
	defer hist.Close()

	if *history {
		printHistory(hist)
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: rehabreps-replay [-exercise NAME] [-csv FILE] [-dry-run] <recording.jsonl>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := flag.Arg(0)

	profiles := profile.NewRegistry()
	if *profilesPath != "" {
		if err := profiles.Load(*profilesPath); err != nil {
			log.Error("failed to load exercise profiles", "path", *profilesPath, "error", err)
			os.Exit(1)
		}
	}
	p, ok := profiles.ByName(*exercise)
	if !ok {
		log.Error("unknown exercise", "exercise", *exercise, "known", profiles.Names())
		os.Exit(1)
	}

	hash, err := replay.HashFile(path)
	if err != nil {
		log.Error("failed to hash recording", "path", path, "error", err)
		os.Exit(1)
	}

	if !*force && !*dryRun {
		seen, err := hist.IsReplayed(path, hash)
		if err != nil {
			log.Error("history lookup failed", "error", err)
			os.Exit(1)
		}
		if seen {
			log.Info("recording already replayed, use -force to rerun", "path", path)
			return
		}
	}

	f, err := os.Open(path)
	if err != nil {
		log.Error("failed to open recording", "path", path, "error", err)
		os.Exit(1)
	}
	frames, err := replay.ReadFrames(f)
	f.Close()
	if err != nil {
		log.Error("failed to parse recording", "path", path, "error", err)
		os.Exit(1)
	}
	log.Info("recording loaded", "path", path, "frames", len(frames))

	result, err := replay.Run(p, frames)
	if err != nil {
		log.Error("replay failed", "error", err)
		os.Exit(1)
	}

	printSummary(result)

	if *csvOut != "" {
		if err := writeCSV(*csvOut, result); err != nil {
			log.Error("csv export failed", "path", *csvOut, "error", err)
			os.Exit(1)
		}
		log.Info("csv written", "path", *csvOut)
	}

	if !*dryRun {
		sum := result.Summary
		if err := hist.Record(path, hash, *exercise, sum.TotalReps, sum.TotalPoints, sum.AvgFormScore()); err != nil {
			log.Error("failed to record history", "error", err)
			os.Exit(1)
		}
	}
}

func printSummary(result *replay.Result) {
	sum := result.Summary
	fmt.Println()
	fmt.Println("=== Replay Summary ===")
	fmt.Printf("  Exercise:         %s\n", sum.Exercise)
	fmt.Printf("  Repetitions:      %d\n", sum.TotalReps)
	fmt.Printf("  Total points:     %d\n", sum.TotalPoints)
	fmt.Printf("  Avg form score:   %.2f\n", sum.AvgFormScore())
	fmt.Printf("  Frames seen:      %d (%d skipped)\n", sum.FramesSeen, sum.FramesSkipped)
	fmt.Printf("  Reps discarded:   %d\n", sum.RepsDiscarded)
	fmt.Println()
	for i, rep := range result.Reps {
		fmt.Printf("  #%d  peak %.1f°  ROM %.1f°  conf %.2f  %s (%d pts)\n",
			i+1, rep.PeakAngle, rep.RangeOfMotion, rep.MeanConfidence, rep.Quality, rep.Points)
	}
	fmt.Println()
}

func printHistory(hist *replay.HistoryDB) {
	entries, err := hist.Recent(20)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No replays recorded yet.")
		return
	}
	fmt.Println("=== Recent Replays ===")
	for _, e := range entries {
		fmt.Printf("  %s  %-12s %3d reps  %4d pts  form %.2f  (%s)\n",
			e.ReplayedAt.Format("2006-01-02 15:04"), e.Exercise, e.TotalReps, e.TotalPoints, e.AvgFormScore, e.Path)
	}
}

func writeCSV(path string, result *replay.Result) error {
	rows := replay.RepRows(result)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.Reps(f, rows)
}
