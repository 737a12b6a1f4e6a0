package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zsenarchitect/ManVsGod/internal/config"
	"github.com/zsenarchitect/ManVsGod/internal/persistence"
	"github.com/zsenarchitect/ManVsGod/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the saved rules and their evolution",
	RunE:  runRules,
}

func runRules(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.SlogLevel())

	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	snap, err := db.LoadEngine()
	if errors.Is(err, persistence.ErrNoState) {
		fmt.Fprintf(out, "No saved rules in %s. Seed values:\n\n", cfg.DBPath)
		printRules(out, rules.NewEngine().Snapshot(), time.Now())
		return nil
	}
	if err != nil {
		return err
	}

	engine, err := rules.Restore(snap)
	if err != nil {
		return err
	}
	if at, err := db.SavedAt(); err == nil {
		fmt.Fprintf(out, "Saved %s\n\n", humanize.Time(at))
	}
	printRules(out, engine.Snapshot(), time.Now())
	return nil
}

// printRules writes one row per rule, then a summary line.
func printRules(w io.Writer, snap rules.Snapshot, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tVALUE\tBASE\tINFLUENCE\tEVOLVED\tLAST EVOLVED")
	for _, r := range snap.Rules {
		base := "-"
		if r.Base != nil {
			base = formatValue(r.Base)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+.2f / %.2f\t%d\t%s\n",
			r.ID, formatValue(r.Current), base, r.Influence, r.Threshold,
			len(r.History), humanize.RelTime(r.LastEvolvedAt, now, "ago", "from now"),
		)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%s decisions, %s evolutions\n",
		humanize.Comma(int64(len(snap.Decisions))), humanize.Comma(int64(len(snap.History))))
}

func formatValue(v rules.Value) string {
	switch v := v.(type) {
	case rules.Currency:
		return humanize.Comma(int64(v))
	default:
		return humanize.FtoaWithDigits(v.Float64(), 2)
	}
}
