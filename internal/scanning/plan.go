package scanning

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/limulus26/Nmapx/internal/errors"
)

// Phase is one named nmap invocation in a scan plan.
type Phase struct {
	// Name identifies the phase and names its output directory
	Name string `validate:"required,max=128"`
	// Flags are passed to nmap after the output flags, before the target
	Flags []string `validate:"dive,required"`
	// PortRestricted phases get "-p <discovered ports>" appended to Flags
	PortRestricted bool
	// Timeout overrides the run-wide phase timeout when non-zero
	Timeout time.Duration
}

// Arguments builds the nmap argument vector for this phase. ports is only
// used for port-restricted phases and must be non-empty for them.
func (p Phase) Arguments(outputBase, target, ports string) []string {
	args := make([]string, 0, len(p.Flags)+5)
	args = append(args, "-oA", outputBase)
	args = append(args, p.Flags...)
	if p.PortRestricted {
		args = append(args, "-p", ports)
	}
	return append(args, target)
}

// Plan is the ordered, immutable list of phases applied to every target.
type Plan struct {
	Phases []Phase `validate:"required,min=1,unique=Name,dive"`
}

var planValidator = validator.New()

// NewPlan validates phases and returns a Plan holding a private copy of them.
func NewPlan(phases ...Phase) (*Plan, error) {
	plan := &Plan{Phases: make([]Phase, len(phases))}
	for i, p := range phases {
		p.Flags = append([]string(nil), p.Flags...)
		plan.Phases[i] = p
	}

	if err := planValidator.Struct(plan); err != nil {
		return nil, errors.WrapScanError(errors.CodeValidation, "invalid scan plan", err)
	}
	for _, p := range plan.Phases {
		if err := validatePhase(p); err != nil {
			return nil, err
		}
	}

	return plan, nil
}

// validatePhase checks the constraints the struct tags cannot express.
func validatePhase(p Phase) error {
	if p.Name == "." || p.Name == ".." || strings.ContainsAny(p.Name, `/\`) {
		return errors.NewScanError(errors.CodeValidation,
			fmt.Sprintf("phase name %q cannot be used as a directory name", p.Name)).WithPhase(p.Name)
	}
	if p.Timeout < 0 {
		return errors.NewScanError(errors.CodeValidation, "phase timeout cannot be negative").WithPhase(p.Name)
	}
	for _, f := range p.Flags {
		if strings.HasPrefix(f, "-o") {
			return errors.NewScanError(errors.CodeValidation,
				fmt.Sprintf("flag %q conflicts with the managed output flags", f)).WithPhase(p.Name)
		}
		if p.PortRestricted && strings.HasPrefix(f, "-p") {
			return errors.NewScanError(errors.CodeValidation,
				fmt.Sprintf("port-restricted phase cannot set its own ports (%q)", f)).WithPhase(p.Name)
		}
	}
	return nil
}

// Len returns the number of phases.
func (p *Plan) Len() int {
	return len(p.Phases)
}

// Names returns the phase names in execution order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Phases))
	for i := range p.Phases {
		names[i] = p.Phases[i].Name
	}
	return names
}

// DefaultPhases returns the built-in eight-phase plan definition.
func DefaultPhases() []Phase {
	return []Phase{
		{Name: "1.0_discovery_scan", Flags: []string{"-Pn", "-T4", "--top-ports", "1000"}},
		{Name: "2.0_script_scan", Flags: []string{"-sCV", "-Pn", "-T4"}, PortRestricted: true},
		{Name: "3.0_quick_udp_scan", Flags: []string{"-sU", "-Pn", "-T4", "--top-ports", "100"}},
		{Name: "4.0_full_tcp_scan", Flags: []string{"-Pn", "-T4", "-p-"}},
		{Name: "5.0_source_port_scan", Flags: []string{"-g53", "-Pn", "-T4", "-p-"}},
		{Name: "6.0_IPv6_scan", Flags: []string{"-6", "-Pn", "-T4", "-p-"}},
		{Name: "7.0_full_udp_scan", Flags: []string{"-sU", "-Pn", "-T4", "-p-"}},
		{Name: "8.0_full_service_scan", Flags: []string{"-sCV", "-Pn", "-T4", "-p-"}},
	}
}

// DefaultPlan returns the built-in plan. It panics only if the built-in
// definition itself is invalid.
func DefaultPlan() *Plan {
	plan, err := NewPlan(DefaultPhases()...)
	if err != nil {
		panic(err)
	}
	return plan
}
