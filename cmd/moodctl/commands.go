package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"moodcal/internal/calendar"
	"moodcal/internal/core"
	"moodcal/internal/export"
	"moodcal/internal/services"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid person id %q", s)
	}
	return id, nil
}

func splitMoods(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func newPersonCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "person",
		Short: "Register, edit and remove persons",
	}

	var color, moods string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Register a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := core.Person{Name: args[0], Color: color}
			if moods != "" {
				p.Moods = splitMoods(moods)
			}
			created, err := a.moods.CreatePerson(cmd.Context(), p)
			if err != nil {
				return err
			}
			a.printf("Registered %s (id %d)\n", created.Name, created.ID)
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", "", "hex color, defaults to "+core.DefaultColor)
	add.Flags().StringVar(&moods, "moods", "", "comma separated mood palette")

	list := &cobra.Command{
		Use:   "list",
		Short: "List persons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			persons, err := a.moods.ListPersons(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tMOODS")
			for _, p := range persons {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Color, strings.Join(p.Moods, ", "))
			}
			return tw.Flush()
		},
	}

	var newName, newColor, newMoods string
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a person's name, color or palette",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.moods.GetPerson(cmd.Context(), id)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				p.Name = newName
			}
			if cmd.Flags().Changed("color") {
				p.Color = newColor
			}
			if cmd.Flags().Changed("moods") {
				p.Moods = splitMoods(newMoods)
			}
			updated, err := a.moods.UpdatePerson(cmd.Context(), p)
			if err != nil {
				return err
			}
			a.printf("Updated %s (id %d)\n", updated.Name, updated.ID)
			return nil
		},
	}
	edit.Flags().StringVar(&newName, "name", "", "new name")
	edit.Flags().StringVar(&newColor, "color", "", "new hex color")
	edit.Flags().StringVar(&newMoods, "moods", "", "new comma separated mood palette")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a person and all their entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.moods.DeletePerson(cmd.Context(), id); err != nil {
				return err
			}
			a.printf("Deleted person %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(add, list, edit, rm)
	return cmd
}

func newMoodCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mood",
		Short: "Record or clear daily moods",
	}

	var notes string
	set := &cobra.Command{
		Use:   "set DATE PERSON_ID [MOOD]",
		Short: "Record a mood and/or notes; omitted values are kept",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := core.ParseDate(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			patch := core.EntryPatch{Date: date, PersonID: id}
			if len(args) == 3 {
				patch.Mood = core.StringPtr(args[2])
			}
			if cmd.Flags().Changed("notes") {
				patch.Notes = core.StringPtr(notes)
			}
			e, err := a.moods.SaveEntry(cmd.Context(), patch)
			if err != nil {
				return err
			}
			a.printf("%s person %d: %s\n", e.Date, e.PersonID, e.Mood)
			return nil
		},
	}
	set.Flags().StringVar(&notes, "notes", "", "free text notes for the day")

	clearCmd := &cobra.Command{
		Use:   "clear DATE PERSON_ID",
		Short: "Remove the entry for a day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := core.ParseDate(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := a.moods.ClearEntry(cmd.Context(), date, id); err != nil {
				return err
			}
			a.printf("Cleared %s for person %d\n", date, id)
			return nil
		},
	}

	cmd.AddCommand(set, clearCmd)
	return cmd
}

func newCycleCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Apply cycle templates",
	}

	presets := &cobra.Command{
		Use:   "presets",
		Short: "List built-in and configured presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range a.cycles.Presets() {
				a.printf("%s (%d days)\n", p.Name, p.Length)
				for _, ph := range p.Phases {
					a.printf("  day %2d-%2d  %-16s %s\n", ph.StartDay, ph.EndDay, ph.Name, ph.Mood)
				}
			}
			return nil
		},
	}

	var (
		start, preset, templateFile string
		length                      int
		repeat                      bool
	)
	apply := &cobra.Command{
		Use:   "apply PERSON_ID",
		Short: "Write cycle moods for a person starting at --start",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			startDate, err := core.ParseDate(start)
			if err != nil {
				return err
			}
			req := services.ApplyRequest{
				PersonID: id,
				Start:    startDate,
				Length:   length,
				Preset:   preset,
				Repeat:   repeat,
			}
			if templateFile != "" {
				t, err := readTemplate(templateFile)
				if err != nil {
					return err
				}
				req.Template = &t
			}
			res, err := a.cycles.Apply(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.printf("Applied %d days over a %d day span for person %d\n", res.AppliedDays(), res.Span, res.PersonID)
			return nil
		},
	}
	apply.Flags().StringVar(&start, "start", "", "first day of the cycle (YYYY-MM-DD)")
	apply.Flags().StringVar(&preset, "preset", "", "preset name, see 'moodctl cycle presets'")
	apply.Flags().StringVar(&templateFile, "template", "", "YAML file with a custom template")
	apply.Flags().IntVar(&length, "length", 0, "cycle length in days, defaults to the preset's length")
	apply.Flags().BoolVar(&repeat, "repeat", false, "apply three consecutive cycles")
	_ = apply.MarkFlagRequired("start")
	apply.MarkFlagsMutuallyExclusive("preset", "template")

	cmd.AddCommand(presets, apply)
	return cmd
}

// readTemplate loads a template written in the presets file's phase format.
func readTemplate(path string) (core.CycleTemplate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return core.CycleTemplate{}, fmt.Errorf("read template: %w", err)
	}
	var t core.CycleTemplate
	if err := yaml.Unmarshal(b, &t); err != nil {
		return core.CycleTemplate{}, fmt.Errorf("parse template %s: %w", path, err)
	}
	return t, nil
}

func newCalendarCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show month, week or year views",
	}

	for _, view := range []calendar.View{calendar.ViewMonth, calendar.ViewWeek, calendar.ViewYear} {
		var date string
		sub := &cobra.Command{
			Use:   string(view),
			Short: "Show the " + string(view) + " around --date (default today)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ref := core.Today()
				if date != "" {
					d, err := core.ParseDate(date)
					if err != nil {
						return err
					}
					ref = d
				}
				p, err := a.project.Project(cmd.Context(), ref, view)
				if err != nil {
					return err
				}
				renderProjection(a.out, p)
				return nil
			},
		}
		sub.Flags().StringVar(&date, "date", "", "reference date (YYYY-MM-DD)")
		cmd.AddCommand(sub)
	}
	return cmd
}

func newStatsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate recorded moods",
	}

	var year int
	var person int64
	moods := &cobra.Command{
		Use:   "moods",
		Short: "Mood frequency table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter core.EntryFilter
			if year != 0 {
				filter = core.YearFilter(year)
			}
			filter.PersonID = person
			summary, err := a.stats.Moods(cmd.Context(), filter)
			if err != nil {
				return err
			}
			renderSummary(a.out, summary)
			return nil
		},
	}
	moods.Flags().IntVar(&year, "year", 0, "restrict to one year")
	moods.Flags().Int64Var(&person, "person", 0, "restrict to one person id")

	cmd.AddCommand(moods)
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export entries",
	}

	var out string
	csvCmd := &cobra.Command{
		Use:   "csv",
		Short: "Write all entries as CSV to --out or stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := export.Load(cmd.Context(), a.res.Store, core.EntryFilter{})
			if err != nil {
				return err
			}
			if out == "" {
				return export.WriteCSV(a.out, rows)
			}
			if err := (export.CSVFile{Path: out}).Export(cmd.Context(), rows); err != nil {
				return err
			}
			a.printf("Wrote %d rows to %s\n", len(rows), out)
			return nil
		},
	}
	csvCmd.Flags().StringVarP(&out, "out", "o", "", "output file")

	cmd.AddCommand(csvCmd, newSheetsAuthCommand(a))
	return cmd
}
