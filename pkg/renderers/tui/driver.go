package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Question asks for free text. Default prefills the answer.
type Question struct {
	Label   string
	Default string
	Help    string
}

// YesNo asks for a confirmation.
type YesNo struct {
	Label   string
	Default bool
	Help    string
}

// Choice asks the operator to pick among option labels. Selected holds the
// indexes preselected from the current value.
type Choice struct {
	Label    string
	Labels   []string
	Selected []int
	Help     string
}

// PromptDriver asks the operator one question at a time. The terminal driver
// talks to the console; tests script their answers.
type PromptDriver interface {
	Line(ctx context.Context, q Question) (string, error)
	Secret(ctx context.Context, q Question) (string, error)
	Lines(ctx context.Context, q Question) (string, error)
	Confirm(ctx context.Context, q YesNo) (bool, error)
	Pick(ctx context.Context, c Choice) (int, error)
	PickMany(ctx context.Context, c Choice) ([]int, error)
	Info(ctx context.Context, msg string) error
}

// pageSize keeps long option lookups on one screen.
const pageSize = 12

type terminalDriver struct {
	out  io.Writer
	opts []survey.AskOpt
}

// NewSurveyDriver prompts on the process terminal. Info lines go to out
// (stdout when nil); opts are passed to every survey question.
func NewSurveyDriver(out io.Writer, opts ...survey.AskOpt) PromptDriver {
	if out == nil {
		out = os.Stdout
	}
	return &terminalDriver{out: out, opts: opts}
}

// ask runs one survey prompt. Ctrl+C surfaces as ErrAborted.
func ask[T any](ctx context.Context, d *terminalDriver, label string, prompt survey.Prompt) (T, error) {
	var answer T
	if err := ctx.Err(); err != nil {
		return answer, err
	}
	if err := survey.AskOne(prompt, &answer, d.opts...); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return answer, ErrAborted
		}
		return answer, fmt.Errorf("tui: ask %q: %w", label, err)
	}
	return answer, nil
}

func (d *terminalDriver) Line(ctx context.Context, q Question) (string, error) {
	return ask[string](ctx, d, q.Label, &survey.Input{Message: q.Label, Default: q.Default, Help: q.Help})
}

func (d *terminalDriver) Secret(ctx context.Context, q Question) (string, error) {
	return ask[string](ctx, d, q.Label, &survey.Password{Message: q.Label, Help: q.Help})
}

func (d *terminalDriver) Lines(ctx context.Context, q Question) (string, error) {
	return ask[string](ctx, d, q.Label, &survey.Multiline{Message: q.Label, Default: q.Default, Help: q.Help})
}

func (d *terminalDriver) Confirm(ctx context.Context, q YesNo) (bool, error) {
	return ask[bool](ctx, d, q.Label, &survey.Confirm{Message: q.Label, Default: q.Default, Help: q.Help})
}

// Pick answers with the index of the chosen label.
func (d *terminalDriver) Pick(ctx context.Context, c Choice) (int, error) {
	prompt := &survey.Select{Message: c.Label, Options: c.Labels, Help: c.Help, PageSize: pageSize}
	if picked := c.picked(); len(picked) > 0 {
		prompt.Default = picked[0]
	}
	return ask[int](ctx, d, c.Label, prompt)
}

// PickMany answers with the indexes of the checked labels.
func (d *terminalDriver) PickMany(ctx context.Context, c Choice) ([]int, error) {
	prompt := &survey.MultiSelect{Message: c.Label, Options: c.Labels, Help: c.Help, PageSize: pageSize}
	if picked := c.picked(); len(picked) > 0 {
		prompt.Default = picked
	}
	return ask[[]int](ctx, d, c.Label, prompt)
}

func (d *terminalDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

// picked returns the labels of the preselected indexes, dropping stale ones.
func (c Choice) picked() []string {
	var labels []string
	for _, idx := range c.Selected {
		if idx >= 0 && idx < len(c.Labels) {
			labels = append(labels, c.Labels[idx])
		}
	}
	return labels
}
