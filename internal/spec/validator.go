package spec

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"

	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	processorRefPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	contextKeyPattern   = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)
)

// validatorInstance configures and returns the shared validator instance
// used across the spec package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("processor_ref", func(fl validator.FieldLevel) bool {
			return processorRefPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("context_key", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			if value == "" {
				return true
			}
			return contextKeyPattern.MatchString(value)
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns the configured validator for use outside the package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

// Validate checks a parsed document against the structural schema plus the
// rules struct tags cannot express.
func Validate(doc *Document) error {
	if doc == nil {
		return semerrors.NewSpecFieldError("document", "spec document is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(doc); err != nil {
		return convertValidatorError(err)
	}

	for i, node := range doc.Nodes {
		if !processorRefPattern.MatchString(node.Processor) {
			return semerrors.NewSpecError(i, "processor", fmt.Sprintf("invalid processor reference %q", node.Processor), nil)
		}
		if node.ContextKey != "" && !contextKeyPattern.MatchString(node.ContextKey) {
			return semerrors.NewSpecError(i, "context_key", fmt.Sprintf("invalid context key %q", node.ContextKey), nil)
		}
		if node.Derive != nil && node.Derive.ParameterSweep != nil {
			if err := validateSweep(i, node.Derive.ParameterSweep); err != nil {
				return err
			}
		}
	}

	if doc.RunSpace != nil {
		if err := validateRunSpace(doc.RunSpace); err != nil {
			return err
		}
	}

	return nil
}

func validateSweep(nodeIndex int, sweep *SweepSpec) error {
	for name, rng := range sweep.Variables {
		if rng.IsExplicit() {
			continue
		}
		if rng.Steps < 2 {
			return semerrors.NewSpecError(nodeIndex, "derive.parameter_sweep",
				fmt.Sprintf("variable %q needs either values or a lo/hi range with steps >= 2", name), nil)
		}
		if rng.Hi < rng.Lo {
			return semerrors.NewSpecError(nodeIndex, "derive.parameter_sweep",
				fmt.Sprintf("variable %q has hi < lo", name), nil)
		}
	}
	for target := range sweep.Expressions {
		if target == "" {
			return semerrors.NewSpecError(nodeIndex, "derive.parameter_sweep", "expression target must be named", nil)
		}
	}
	return nil
}

func validateRunSpace(rs *RunSpaceBlock) error {
	seen := make(map[string]int)
	for i, block := range rs.Blocks {
		for key := range block.Context {
			if prev, dup := seen[key]; dup {
				return semerrors.NewSpecFieldError("run_space",
					fmt.Sprintf("context key %q appears in blocks %d and %d", key, prev, i), nil)
			}
			seen[key] = i
		}
		for key := range block.Sources {
			if _, clash := block.Context[key]; clash {
				return semerrors.NewSpecFieldError("run_space",
					fmt.Sprintf("key %q is both context-provided and externally sourced in block %d", key, i), nil)
			}
		}
		if block.Mode == "by_position" {
			if err := checkEqualLengths(i, block.Context); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkEqualLengths(blockIndex int, ctx map[string][]any) error {
	expected := -1
	for key, values := range ctx {
		if expected == -1 {
			expected = len(values)
			continue
		}
		if len(values) != expected {
			return semerrors.NewSpecFieldError("run_space",
				fmt.Sprintf("by_position block %d has unequal list lengths (key %q)", blockIndex, key), nil)
		}
	}
	return nil
}

func convertValidatorError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return semerrors.NewSpecFieldError(fe.Namespace(),
			fmt.Sprintf("failed %q validation", fe.Tag()), err)
	}
	return semerrors.NewSpecFieldError("document", "spec validation failed", err)
}
