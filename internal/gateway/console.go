package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rahul/tukda/internal/engine"
	"github.com/rahul/tukda/internal/store"
)

const consoleHelp = `commands:
  split <minutes|-> <description...>   classify and split a task
  steps <task_id>                      list top-level steps with stats
  children <step_id>                   list a step's children
  refine <step_id> [low|medium|high]   decompose one step further
  done <step_id> <actual_minutes>      mark a leaf step complete
  quit`

// Console is a line-based local surface over the engine. It only parses
// commands into engine requests; all semantics stay in the engine.
type Console struct {
	Engine        *engine.Engine
	DefaultEnergy string
	In            io.Reader
	Out           io.Writer
}

func NewConsole(eng *engine.Engine, defaultEnergy string, in io.Reader, out io.Writer) *Console {
	return &Console{
		Engine:        eng,
		DefaultEnergy: defaultEnergy,
		In:            in,
		Out:           out,
	}
}

func (c *Console) Start(ctx context.Context) error {
	fmt.Fprintln(c.Out, consoleHelp)

	scanner := bufio.NewScanner(c.In)
	for {
		fmt.Fprint(c.Out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}

		if err := c.dispatch(ctx, line); err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
		}
	}
}

func (c *Console) Stop() error {
	return nil
}

func (c *Console) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(c.Out, consoleHelp)
		return nil

	case "split":
		if len(args) < 2 {
			return fmt.Errorf("usage: split <minutes|-> <description...>")
		}
		minutes := 0
		if args[0] != "-" {
			m, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("bad minutes %q", args[0])
			}
			minutes = m
		}
		taskID := uuid.NewString()
		resp, err := c.Engine.Split(ctx, engine.SplitRequest{
			TaskID:          taskID,
			Description:     strings.Join(args[1:], " "),
			ExplicitMinutes: minutes,
			Energy:          c.DefaultEnergy,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "scope: %s\n", resp.Scope)
		if resp.Message != "" {
			fmt.Fprintln(c.Out, resp.Message)
		}
		if len(resp.Steps) > 0 {
			fmt.Fprintf(c.Out, "task: %s\n", taskID)
			c.printSteps(resp.Steps)
		}
		return nil

	case "steps":
		if len(args) != 1 {
			return fmt.Errorf("usage: steps <task_id>")
		}
		resp, err := c.Engine.ListSteps(args[0])
		if err != nil {
			return err
		}
		c.printSteps(resp.Steps)
		fmt.Fprintf(c.Out, "done %d/%d (%.0f%%), est %dm, actual %dm\n",
			resp.Stats.Completed, resp.Stats.Total, resp.Stats.Percent,
			resp.Stats.TotalEstimatedMinutes, resp.Stats.TotalActualMinutes)
		return nil

	case "children":
		if len(args) != 1 {
			return fmt.Errorf("usage: children <step_id>")
		}
		children, err := c.Engine.GetChildren(args[0])
		if err != nil {
			return err
		}
		if len(children) == 0 {
			fmt.Fprintln(c.Out, "no children")
			return nil
		}
		c.printSteps(children)
		return nil

	case "refine":
		if len(args) < 1 {
			return fmt.Errorf("usage: refine <step_id> [low|medium|high]")
		}
		energy := c.DefaultEnergy
		if len(args) > 1 {
			energy = args[1]
		}
		resp, err := c.Engine.DecomposeStep(ctx, args[0], energy)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%d child steps:\n", resp.Count)
		c.printSteps(resp.Children)
		return nil

	case "done":
		if len(args) != 2 {
			return fmt.Errorf("usage: done <step_id> <actual_minutes>")
		}
		minutes, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad minutes %q", args[1])
		}
		resp, err := c.Engine.CompleteStep(args[0], minutes)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%s (+%d xp)\n", resp.Status, resp.XPEarned)
		return nil

	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (c *Console) printSteps(steps []*store.Step) {
	for _, s := range steps {
		mark := " "
		if s.Completed {
			mark = "x"
		}
		fmt.Fprintf(c.Out, "  [%s] %d. %s (%dm, %s) %s\n",
			mark, s.StepNumber, s.ShortLabel, s.EstimatedMinutes, s.ExecutionMode, s.ID)
	}
}
