package rules

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// scriptCostLimit bounds CEL evaluation to prevent resource exhaustion from
// runaway user expressions.
const scriptCostLimit = 1_000_000

// ScriptRunner evaluates user-authored rule scripts in a constrained CEL
// environment. The script sees only the rule context (email, senderInfo,
// extractedLinks, senderScore, variables) and an extractRegex helper; there
// is no access to the host process, network or storage.
type ScriptRunner struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program // script text -> compiled program
}

// NewScriptRunner creates the CEL environment with the capability allowlist
// for rule scripts.
func NewScriptRunner() (*ScriptRunner, error) {
	env, err := cel.NewEnv(
		cel.Variable("email", cel.DynType),
		cel.Variable("senderInfo", cel.DynType),
		cel.Variable("extractedLinks", cel.DynType),
		cel.Variable("senderScore", cel.DoubleType),
		cel.Variable("variables", cel.DynType),
		cel.Function("extractRegex",
			cel.Overload("extractRegex_string_string_int",
				[]*cel.Type{cel.StringType, cel.StringType, cel.IntType},
				cel.StringType,
				cel.FunctionBinding(extractRegexBinding),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create script environment: %w", err)
	}
	return &ScriptRunner{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Run compiles (with caching) and evaluates a script against the rule
// context. The script's return value becomes the action result.
func (sr *ScriptRunner) Run(script string, rc *RuleContext, vars map[string]any) (any, error) {
	prog, err := sr.program(script)
	if err != nil {
		return nil, err
	}

	out, _, err := prog.Eval(scriptActivation(rc, vars))
	if err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}
	return out.Value(), nil
}

func (sr *ScriptRunner) program(script string) (cel.Program, error) {
	sr.mu.RLock()
	prog, ok := sr.programs[script]
	sr.mu.RUnlock()
	if ok {
		return prog, nil
	}

	ast, issues := sr.env.Compile(script)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("script compile error: %w", issues.Err())
	}

	prog, err := sr.env.Program(ast, cel.CostLimit(scriptCostLimit))
	if err != nil {
		return nil, fmt.Errorf("script program creation error: %w", err)
	}

	sr.mu.Lock()
	sr.programs[script] = prog
	sr.mu.Unlock()
	return prog, nil
}

// scriptActivation builds the variable bindings visible to a script. Only
// plain data crosses the boundary.
func scriptActivation(rc *RuleContext, vars map[string]any) map[string]any {
	links := make([]map[string]any, 0, len(rc.Links))
	for _, l := range rc.Links {
		links = append(links, map[string]any{"url": l.URL, "domain": l.Domain})
	}
	if vars == nil {
		vars = map[string]any{}
	}
	return map[string]any{
		"email": map[string]any{
			"id":       rc.Email.ID,
			"subject":  rc.Email.Subject,
			"from":     rc.Email.From,
			"body":     rc.Email.Body,
			"htmlBody": rc.Email.HTMLBody,
		},
		"senderInfo": map[string]any{
			"email": rc.Sender.Email,
			"name":  rc.Sender.Name,
		},
		"extractedLinks": links,
		"senderScore":    rc.SenderScore,
		"variables":      vars,
	}
}

// extractRegexBinding implements extractRegex(text, pattern, group): the
// submatch at the given capture group index, or "" when nothing matches.
func extractRegexBinding(args ...ref.Val) ref.Val {
	if len(args) != 3 {
		return types.NewErr("extractRegex requires 3 arguments")
	}
	text, _ := args[0].Value().(string)
	pattern, _ := args[1].Value().(string)
	group, _ := args[2].Value().(int64)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return types.NewErr("extractRegex: invalid pattern: %v", err)
	}
	m := re.FindStringSubmatch(text)
	if m == nil || group < 0 || int(group) >= len(m) {
		return types.String("")
	}
	return types.String(m[group])
}
