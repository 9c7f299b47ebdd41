package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/genera/compass/internal/model"
	"github.com/genera/compass/internal/pipeline"
	"github.com/genera/compass/internal/session"
)

var (
	takeSeed       uint64
	skipProfile    bool
	errTakeAborted = errors.New("questionnaire aborted")
)

// takeCmd represents the take command
var takeCmd = &cobra.Command{
	Use:   "take",
	Short: "Answer the questionnaire interactively",
	Long: `Take asks the profile questions, then presents every item once in a
random order and shows the result. Pass --seed to reproduce an order.

Example:
  compass take
  compass take --catalog areas --md report.md --svg chart.svg`,
	Args: cobra.NoArgs,
	RunE: runTake,
}

func init() {
	rootCmd.AddCommand(takeCmd)

	takeCmd.Flags().Uint64Var(&takeSeed, "seed", 0, "seed for the presentation order (0 draws one)")
	takeCmd.Flags().BoolVar(&skipProfile, "skip-profile", false, "do not ask the profile questions")
	takeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path")
	takeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path")
	takeCmd.Flags().StringVar(&outSVG, "svg", "", "output SVG chart path")
}

// asker collects answers from the respondent
type asker interface {
	Profile() (model.Profile, error)
	Item(item model.Item, number, total int, scale model.Scale) (int, error)
}

func runTake(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cmd.Context(), cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	p.Renderer().SetOutput(cmd.OutOrStdout())

	sess := session.NewRandom(p.Catalog())
	if takeSeed != 0 {
		sess = session.New(p.Catalog(), takeSeed)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Session %s (seed %d)\n\n", sess.ID(), sess.Seed())
	}

	report, err := takeSession(cmd.Context(), p, sess, &promptAsker{skipProfile: skipProfile})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	if err := p.RenderReport(report, outJSON, outMD, outSVG); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}

// takeSession asks every unanswered item in presentation order, then
// submits the session to the pipeline
func takeSession(ctx context.Context, p *pipeline.Pipeline, sess *session.Session, a asker) (*model.Report, error) {
	profile, err := a.Profile()
	if err != nil {
		return nil, err
	}
	if err := sess.SetProfile(profile); err != nil {
		return nil, err
	}

	scale := sess.Catalog().Scale()
	_, total := sess.Progress()
	for {
		item, ok := sess.Next()
		if !ok {
			break
		}
		answered, _ := sess.Progress()

		v, err := a.Item(item, answered+1, total, scale)
		if err != nil {
			return nil, err
		}
		if err := sess.Answer(item.ID, v); err != nil {
			return nil, err
		}
	}

	responses, profile, err := sess.Submit()
	if err != nil {
		return nil, err
	}

	return p.Assess(ctx, pipeline.Submission{
		SessionID: sess.ID(),
		Catalog:   sess.Catalog().Name(),
		Profile:   profile,
		Responses: responses,
	})
}

// promptAsker asks on the terminal with promptui
type promptAsker struct {
	skipProfile bool
}

func (a *promptAsker) Profile() (model.Profile, error) {
	if a.skipProfile {
		return model.Profile{}, nil
	}

	nickname, err := (&promptui.Prompt{
		Label: "Nickname",
		Validate: func(s string) error {
			if len(strings.TrimSpace(s)) > 64 {
				return errors.New("at most 64 characters")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return model.Profile{}, promptError(err)
	}

	profile := model.Profile{Nickname: strings.TrimSpace(nickname)}
	fields := []struct {
		label   string
		options []string
		target  *string
	}{
		{"Gender", model.GenderOptions, &profile.Gender},
		{"Age", model.AgeBracketOptions, &profile.AgeBracket},
		{"Education", model.EducationOptions, &profile.EducationLevel},
		{"Role", model.RoleOptions, &profile.ProfessionalRole},
	}
	for _, f := range fields {
		choice, err := selectOption(f.label, f.options)
		if err != nil {
			return model.Profile{}, err
		}
		*f.target = choice
	}
	return profile, nil
}

func (a *promptAsker) Item(item model.Item, number, total int, scale model.Scale) (int, error) {
	values := scale.Values()
	labels := make([]string, len(values))
	for i, v := range values {
		labels[i] = scaleLabel(v, scale)
	}

	sel := promptui.Select{
		Label:     fmt.Sprintf("[%d/%d] %s", number, total, item.Text),
		Items:     labels,
		Size:      len(labels),
		CursorPos: len(labels) / 2,
	}
	idx, _, err := sel.Run()
	if err != nil {
		return 0, promptError(err)
	}
	return values[idx], nil
}

func selectOption(label string, options []string) (string, error) {
	items := append([]string{"(skip)"}, options...)
	idx, _, err := (&promptui.Select{Label: label, Items: items, Size: len(items)}).Run()
	if err != nil {
		return "", promptError(err)
	}
	if idx == 0 {
		return "", nil
	}
	return options[idx-1], nil
}

// scaleLabel names the ends of the scale
func scaleLabel(v int, scale model.Scale) string {
	s := strconv.Itoa(v)
	switch v {
	case scale.Min:
		return s + "  never"
	case scale.Max:
		return s + "  always"
	}
	return s
}

func promptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort) {
		return errTakeAborted
	}
	return fmt.Errorf("prompt: %w", err)
}
