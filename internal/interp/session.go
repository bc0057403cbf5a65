package interp

import (
	"context"
	"fmt"
	"strings"

	"github.com/luma-ml/luma/internal/ast"
	"github.com/luma-ml/luma/internal/lexer"
	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/internal/parser"
	"k8s.io/klog/v2"
)

const helpText = `Commands:
  load dataset "path.csv" as NAME [label=COL|none] [header=BOOL] [lazy=BOOL] [format=csv|tsv]
  create model NAME [input=N] [seed=N] { layer KIND param=value ... }
  create tensor NAME values=EXPR [requires_grad=BOOL]
  preprocess NAME method=METHOD[(args)] [as NEW]
  augment NAME method=METHOD[(args)] [as NEW]
  split NAME ratio=R [shuffle=BOOL] [seed=N] [train=A] [test=B]
  train model NAME on DATA [with] epochs=N batch_size=N learning_rate=R optimizer=sgd|adam ...
      schedule=constant|step|exponential|cosine|time|plateau|cyclic [factor= lr_patience= max_lr= mode=]
      [patience=N min_delta=D] [checkpoint="path_{epoch}.safetensors" checkpoint_best=BOOL]
  evaluate model NAME on DATA [loss=NAME] [as RESULT]
  save model NAME to "path" [format=safetensors|json]
  visualize NAME [rows=N]
  print EXPR
  list
  clear [NAME]
  help
  exit
`

// Session runs script files and interactive lines against one Evaluator.
type Session struct {
	ev *Evaluator
}

// NewSession creates a session with an empty environment.
func NewSession(cfg Config) *Session {
	return &Session{ev: NewEvaluator(cfg)}
}

// Evaluator returns the session's evaluator.
func (s *Session) Evaluator() *Evaluator {
	return s.ev
}

// Help writes the command reference to the session output.
func (s *Session) Help() {
	w := s.ev.cfg.Out
	fmt.Fprint(w, helpText)
	fmt.Fprintf(w, "\nLayers:         %s\n", strings.Join(nn.LayerKinds(), ", "))
	fmt.Fprintf(w, "Preprocessing:  %s\n", strings.Join(s.ev.preprocessors.Names(), ", "))
	fmt.Fprintf(w, "Augmentation:   %s\n", strings.Join(s.ev.augmentations.Names(), ", "))
	fmt.Fprintf(w, "Builtins:       %s\n", strings.Join(Builtins(), ", "))
}

// sessionCommand reports whether line is a bare help or exit command.
func sessionCommand(line string) (string, bool) {
	switch w := strings.TrimSpace(line); w {
	case "help", "exit":
		return w, true
	}
	return "", false
}

// RunScript parses src and executes it, stopping at the first error.
// A line holding only exit ends the script successfully; a line holding
// only help prints the command reference when execution reaches it.
func (s *Session) RunScript(ctx context.Context, src string) error {
	lines := strings.Split(src, "\n")
	var helpAt []int // 1-based lines
	for i, line := range lines {
		cmd, ok := sessionCommand(line)
		if !ok {
			continue
		}
		if cmd == "exit" {
			lines = lines[:i]
			break
		}
		helpAt = append(helpAt, i+1)
		lines[i] = ""
	}

	script, err := parser.Parse(strings.Join(lines, "\n"))
	if err != nil {
		return err
	}
	klog.FromContext(ctx).V(1).Info("running script", "commands", len(script.Commands))

	for _, cmd := range script.Commands {
		for len(helpAt) > 0 && helpAt[0] < cmd.Pos.Line {
			s.Help()
			helpAt = helpAt[1:]
		}
		if err := s.ev.Exec(ctx, cmd); err != nil {
			return err
		}
	}
	for range helpAt {
		s.Help()
	}
	return nil
}

// ExecLine executes one interactive input. done is true after exit. A
// failed line leaves the environment unchanged and the session usable.
func (s *Session) ExecLine(ctx context.Context, line string) (done bool, err error) {
	if cmd, ok := sessionCommand(line); ok {
		if cmd == "exit" {
			return true, nil
		}
		s.Help()
		return false, nil
	}
	script, err := parser.Parse(line)
	if err != nil {
		return false, err
	}
	return false, s.ev.Run(ctx, script)
}

// Incomplete reports whether src ends inside an unclosed '{', '[' or '(',
// so an interactive reader should keep collecting lines.
func Incomplete(src string) bool {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return false
	}
	depth := 0
	for _, tok := range toks {
		if tok.Kind != lexer.Punct {
			continue
		}
		switch tok.Text {
		case "{", "[", "(":
			depth++
		case "}", "]", ")":
			depth--
		}
	}
	return depth > 0
}

// Format parses src and returns it in canonical form.
func Format(src string) (string, error) {
	script, err := parser.Parse(src)
	if err != nil {
		return "", err
	}
	return ast.Format(script), nil
}
