package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/store"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show enrolled modalities and storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app) error {
				s := a.styles
				fmt.Fprintln(a.out, s.title.Render("Sesame"))
				fmt.Fprintln(a.out)

				storage := a.cfg.Storage.Backend
				if a.cfg.Storage.Path != "" && a.cfg.Storage.Backend != store.BackendMemory {
					storage += " " + a.cfg.Storage.Path
				}
				if a.cfg.Storage.Seal {
					storage += " (sealed)"
				}
				fmt.Fprintln(a.out, s.row("Storage", 16, storage))
				sq, _ := a.store.(*store.SQLite)
				if sq != nil {
					if v, err := sq.SchemaVersion(a.ctx); err == nil {
						fmt.Fprintln(a.out, s.row("Schema", 16, fmt.Sprintf("v%d", v)))
					}
					if at, err := sq.LastReset(a.ctx); err == nil {
						fmt.Fprintln(a.out, s.row("Last reset", 16, at.Local().Format("2006-01-02 15:04")))
					}
				}
				fmt.Fprintln(a.out)

				enrolled := a.ctl.Enrolled()
				enabled := a.cfg.EnabledModalities()
				for _, m := range pattern.All {
					var state string
					switch {
					case slices.Contains(enrolled, m):
						state = s.ok.Render("enrolled")
						if sq != nil {
							if at, err := sq.UpdatedAt(a.ctx, m.StoreKey()); err == nil {
								state += s.dim.Render(" " + at.Local().Format("2006-01-02 15:04"))
							}
						}
					case !slices.Contains(enabled, m):
						state = s.dim.Render("disabled")
					default:
						state = s.dim.Render("not enrolled")
					}
					fmt.Fprintln(a.out, s.row(m.Title(), 16, state))
				}

				fmt.Fprintln(a.out)
				switch {
				case len(enrolled) == 0:
					fmt.Fprintln(a.out, s.dim.Render("Nothing enrolled yet. Registration is open."))
				default:
					fmt.Fprintln(a.out, s.dim.Render("Login is open. Run 'sesamectl reset --yes' to register again."))
				}
				return nil
			})
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every enrolled pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete patterns without --yes")
			}
			return opts.withApp(cmd, func(a *app) error {
				a.ctl.Reset(a.ctx)
				fmt.Fprintln(a.out, a.styles.status(a.ctl.State().Status))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <modality>",
		Short: "Print a stored fingerprint",
		Long: `Print the fingerprint stored for a modality.

Only derived features are stored; raw recordings, traces and key presses
never are.

A rhythm's key sequence is stored as one string of the pressed key names,
so it prints character by character: a named key such as Enter appears
spelled out, and a space shows as ␣.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pattern.ParseModality(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(a *app) error {
				data, err := a.store.Get(a.ctx, m.StoreKey())
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no %s pattern enrolled", m)
				}
				if err != nil {
					return fmt.Errorf("read %s: %w", m, err)
				}
				fp, err := pattern.Decode(m, data)
				if err != nil {
					return err
				}

				fmt.Fprintln(a.out, a.styles.title.Render(m.Title()))
				switch v := fp.(type) {
				case pattern.ColorFingerprint:
					fmt.Fprintln(a.out, swatch(v.Hex())+" "+v.Hex())
				case pattern.EmojiPath:
					fmt.Fprintln(a.out, strings.Join(v, " "))
				case pattern.RhythmFingerprint:
					// Key boundaries are not stored; only spaces get a glyph.
					fmt.Fprintln(a.out, strings.ReplaceAll(v.KeySequence, " ", pattern.SpaceGlyph))
				}

				out, err := json.MarshalIndent(fp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, string(out))
				return nil
			})
		},
	}
}
