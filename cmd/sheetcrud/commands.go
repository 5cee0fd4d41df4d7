package main

import (
	"bufio"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	sheetcrud "github.com/ideamans/go-sheetcrud"
	"github.com/ideamans/go-sheetcrud/speech"
	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		where  []string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print records as a table",
		Example: "sheetcrud list --where 'age>=30' --limit 10",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := sheetcrud.Query{Limit: limit, Offset: offset}
			for _, expr := range where {
				cond, err := sheetcrud.ParseCondition(expr)
				if err != nil {
					return err
				}
				q.Conditions = append(q.Conditions, cond)
			}

			return printRecords(cmd, ctx, q)
		},
	}
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "filter as column<op>value (==, !=, >, >=, <, <=, ~=); repeatable")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of matching records to skip")
	return cmd
}

// printRecords loads the store and prints the matching records
func printRecords(cmd *cobra.Command, ctx *commandContext, q sheetcrud.Query) error {
	a, err := ctx.openApp(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	records, err := a.session.Query(q)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No records")
		return nil
	}
	fmt.Fprintln(out, recordTable(a.session.Variant(), records))
	return nil
}

// parseAssignments turns repeated --set name=value flags into form input
func parseAssignments(variant *sheetcrud.Variant, sets []string) (map[string]string, error) {
	inputs := make(map[string]string, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q: expected field=value", s)
		}
		name = strings.TrimSpace(name)
		f, known := variant.Field(name)
		if !known || f.Managed {
			return nil, fmt.Errorf("unknown field %q for %s records", name, variant.Name)
		}
		inputs[name] = value
	}
	return inputs, nil
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Create a record",
		Example: "sheetcrud add --set name=Alice --set age=30 --set email=alice@example.com",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := ctx.openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			inputs, err := parseAssignments(a.session.Variant(), sets)
			if err != nil {
				return err
			}
			if err := a.session.New(); err != nil {
				return err
			}
			if err := a.session.SubmitInputs(inputs); err != nil {
				return err
			}
			record, err := a.session.Commit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created", record.ID)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "field=value; repeatable")
	return cmd
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:     "edit ID",
		Short:   "Change fields of a record",
		Example: "sheetcrud edit 3f2c… --set email=new@example.com",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			variant := a.session.Variant()
			changes, err := parseAssignments(variant, sets)
			if err != nil {
				return err
			}
			if len(changes) == 0 {
				return errors.New("nothing to change: pass at least one --set field=value")
			}

			if err := a.session.Edit(args[0]); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			inputs := variant.Inputs(a.session.Draft())
			for k, v := range changes {
				inputs[k] = v
			}
			if err := a.session.SubmitInputs(inputs); err != nil {
				return err
			}
			record, err := a.session.Commit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "updated", record.ID)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "field=value; repeatable")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a record after confirmation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			id := args[0]
			if err := a.session.RequestDelete(id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}

			out := cmd.OutOrStdout()
			if !yes {
				r, err := a.session.Record(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "delete %q? [y/N] ", r.GetAsString(a.session.Variant().Columns()[0], id))
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if answer = strings.ToLower(strings.TrimSpace(answer)); answer != "y" && answer != "yes" {
					fmt.Fprintln(out, "kept", id)
					return a.session.CancelDelete()
				}
			}

			if err := a.session.ConfirmDelete(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out, "deleted", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newSpeakCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "speak ID",
		Short: "Synthesize a speech record to <title>.mp3",
		Long: "Synthesize the text of a speech record with Google Cloud Text-to-Speech and " +
			"write it to <output_dir>/<title>.mp3. Requires variant: speech and speech.enabled.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			return speak(cmd, a, args[0])
		},
	}
}

func speak(cmd *cobra.Command, a *app, id string) error {
	if a.session.Variant() != sheetcrud.SpeechVariant {
		return fmt.Errorf("speak needs variant speech, not %s", a.session.Variant().Name)
	}
	if a.synth == nil {
		return errors.New("speech is disabled: set speech.enabled to true")
	}

	r, err := a.session.Record(id)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	audio, err := a.synth.Synthesize(cmd.Context(), speech.RequestFromRecord(r))
	if err != nil {
		return err
	}
	path, err := speech.WriteFile(a.cfg.OutputDir, r.GetAsString("title", r.ID), audio)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", path, humanize.Bytes(uint64(len(audio.Data))))
	return nil
}

func newVoicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "voices [LANGUAGE]",
		Short: "List the synthesis languages and their voices",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			languages := speech.Languages()
			if len(args) == 1 {
				if speech.Voices(args[0]) == nil {
					return fmt.Errorf("%w: unknown language %s (known: %s)",
						speech.ErrUnsupportedVoice, args[0], strings.Join(languages, ", "))
				}
				languages = []string{args[0]}
			}
			sort.Strings(languages)

			rows := make([][]string, 0)
			for _, lang := range languages {
				for _, voice := range speech.Voices(lang) {
					rows = append(rows, []string{lang, voice})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"language", "voice"}, rows, nil))
			return nil
		},
	}
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the config file path, writing a default one if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			created, err := ensureConfigFile(ctx.configFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintln(out, "Wrote config file to:", ctx.configFile)
				return nil
			}
			fmt.Fprintln(out, ctx.configFile)
			return nil
		},
	}
}
