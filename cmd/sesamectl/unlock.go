package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/session"
)

// errNotRecognized is returned by unlock commands when the pattern does not
// match, so the process exits non-zero.
var errNotRecognized = errors.New("pattern not recognized")

// enroll runs a registration capture for m. fill feeds the capture and
// submits it.
func (a *app) enroll(m pattern.Modality, fill func() error) error {
	if err := a.ctl.BeginRegistration(); err != nil {
		if errors.Is(err, session.ErrNotOffered) {
			return fmt.Errorf("%w (run 'sesamectl reset --yes' to register again)", err)
		}
		return err
	}
	if err := a.ctl.Select(m); err != nil {
		return err
	}
	if err := fill(); err != nil {
		return err
	}
	return a.report(a.ctl.State())
}

// unlock runs a login capture for m.
func (a *app) unlock(m pattern.Modality, fill func() error) error {
	if err := a.ctl.BeginLogin(); err != nil {
		return err
	}
	if err := a.ctl.Select(m); err != nil {
		return err
	}
	if err := fill(); err != nil {
		return err
	}
	return a.report(a.ctl.State())
}

// report prints the outcome of a submitted capture and turns anything short
// of success into an error.
func (a *app) report(s session.State) error {
	if s.Notice.Err != nil {
		return s.Notice.Err
	}
	fmt.Fprintln(a.out, a.styles.status(s.Status))

	switch {
	case s.Phase == session.PhaseFailed && errors.Is(s.Status.Err, session.ErrVerificationFailed):
		return errNotRecognized
	case s.Phase == session.PhaseFailed:
		return s.Status.Err
	case s.Status.Kind == session.StatusWarning || s.Status.Kind == session.StatusError:
		return s.Status.Err
	}
	return nil
}

func newColorCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "color",
		Short: "Enroll or unlock with a mixed color",
		Long: `Enroll or unlock with a mixed RGB color.

A color unlocks when the mean difference of its channels from the enrolled
color is within the configured tolerance (15 by default).`,
	}

	submit := func(a *app, args []string) func() error {
		return func() error {
			rgb, err := parseRGB(args)
			if err != nil {
				return err
			}
			if err := a.ctl.SetColor(rgb[0], rgb[1], rgb[2]); err != nil {
				return err
			}
			return a.ctl.SubmitColor(a.ctx)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enroll <red> <green> <blue>",
			Short: "Enroll a color",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd, func(a *app) error {
					return a.enroll(pattern.ModalityColor, submit(a, args))
				})
			},
		},
		&cobra.Command{
			Use:   "unlock <red> <green> <blue>",
			Short: "Unlock with a color",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd, func(a *app) error {
					return a.unlock(pattern.ModalityColor, submit(a, args))
				})
			},
		},
	)
	return cmd
}

func newShapeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shape",
		Short: "Enroll or unlock with shapes on the grid",
		Long: `Enroll or unlock with shapes placed on an 8x8 grid.

Each placement is written type:x:y, for example circle:2:5. Types are
circle, square and triangle. At least three shapes are needed, one per
cell. A placement unlocks when every shape is within one cell of an
enrolled shape of the same type.`,
	}

	submit := func(a *app, args []string) func() error {
		return func() error {
			for _, arg := range args {
				s, err := parseShape(arg)
				if err != nil {
					return err
				}
				if err := a.ctl.PlaceShape(s); err != nil {
					return err
				}
				if n := a.ctl.State().Notice; n.Err != nil {
					return fmt.Errorf("%s: %w", arg, n.Err)
				}
			}
			return a.ctl.SubmitShapes(a.ctx)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enroll <type:x:y>...",
			Short: "Enroll a shape placement",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd, func(a *app) error {
					return a.enroll(pattern.ModalityShape, submit(a, args))
				})
			},
		},
		&cobra.Command{
			Use:   "unlock <type:x:y>...",
			Short: "Unlock with a shape placement",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd, func(a *app) error {
					return a.unlock(pattern.ModalityShape, submit(a, args))
				})
			},
		},
	)
	return cmd
}

func parseRGB(args []string) ([3]int, error) {
	var rgb [3]int
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 0 || v > 255 {
			return rgb, fmt.Errorf("channel %q: want an integer in 0-255", arg)
		}
		rgb[i] = v
	}
	return rgb, nil
}

func parseShape(arg string) (pattern.Shape, error) {
	parts := strings.Split(arg, ":")
	if len(parts) != 3 {
		return pattern.Shape{}, fmt.Errorf("shape %q: want type:x:y", arg)
	}
	x, errX := strconv.Atoi(parts[1])
	y, errY := strconv.Atoi(parts[2])
	if errX != nil || errY != nil {
		return pattern.Shape{}, fmt.Errorf("shape %q: coordinates must be integers", arg)
	}
	s := pattern.Shape{Type: pattern.ShapeType(strings.ToLower(parts[0])), X: x, Y: y}
	if err := pattern.ValidateShape(s); err != nil {
		return pattern.Shape{}, fmt.Errorf("shape %q: %w", arg, err)
	}
	return s, nil
}
