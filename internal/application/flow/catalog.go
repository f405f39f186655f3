// Package flow declares the wizard flows the portal hosts.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/upload"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/validation"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/wizard"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/pkg/utils"
)

// Step ids shared by several flows
const (
	StepVerification = "verification"
	StepDocuments    = "documents"
)

// FieldCode is the one-time code entered on the verification step. It is
// never persisted with a submission.
const FieldCode = "code"

var ErrUnknownFlow = errors.New("unknown flow")

// CodeChecker verifies a one-time code issued for subject.
type CodeChecker interface {
	Check(ctx context.Context, subject, code string) (bool, error)
}

// Subject keys a verification code to a flow and a mobile number.
func Subject(flowName, phone string) string {
	return flowName + ":" + utils.NormalizeMobile(phone)
}

// Definition is one flow: its ordered steps and which of them verifies the
// applicant's mobile number.
type Definition struct {
	Name             string
	Steps            []wizard.StepDefinition
	VerificationStep string
	// FieldOrder is the display order of the persisted fields
	FieldOrder []string
}

// Catalog holds the flow definitions in display order.
type Catalog struct {
	order  []string
	defs   map[string]Definition
	policy upload.Policy
}

// NewCatalog builds the registration and youth-leadership flows. checker
// backs the verification steps; policy governs their upload steps.
func NewCatalog(checker CodeChecker, policy upload.Policy) *Catalog {
	c := &Catalog{
		defs:   make(map[string]Definition),
		policy: policy,
	}
	c.add(registration(checker))
	c.add(youthLeadership(checker))
	return c
}

func (c *Catalog) add(def Definition) {
	c.order = append(c.order, def.Name)
	c.defs[def.Name] = def
}

// Names returns the flow names in display order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Get returns the definition of name.
func (c *Catalog) Get(name string) (Definition, error) {
	def, ok := c.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownFlow, name)
	}
	def.Steps = append([]wizard.StepDefinition(nil), def.Steps...)
	def.FieldOrder = append([]string(nil), def.FieldOrder...)
	return def, nil
}

// OrderFields lists the keys of fields in the flow's display order. Keys the
// flow does not declare follow in lexical order.
func (d Definition) OrderFields(fields wizard.Fields) []string {
	out := make([]string, 0, len(fields))
	known := make(map[string]bool, len(d.FieldOrder))
	for _, name := range d.FieldOrder {
		known[name] = true
		if _, ok := fields[name]; ok {
			out = append(out, name)
		}
	}
	var rest []string
	for name := range fields {
		if !known[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Policy returns the attachment policy of the upload steps.
func (c *Catalog) Policy() upload.Policy {
	return c.policy
}

// NewWizard starts a wizard over the named flow.
func (c *Catalog) NewWizard(name string, receipts wizard.ReceiptGenerator) (*wizard.Wizard, error) {
	def, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	opts := []wizard.Option{wizard.WithUploadPolicy(c.policy)}
	if receipts != nil {
		opts = append(opts, wizard.WithReceipts(receipts))
	}
	return wizard.New(def.Name, def.Steps, opts...)
}

// Validate checks a complete field set against every step of the flow
// except verification, as a submission arriving without a wizard must pass
// the same rules.
func (c *Catalog) Validate(ctx context.Context, name string, fields wizard.Fields) (wizard.FieldErrors, error) {
	def, err := c.Get(name)
	if err != nil {
		return nil, err
	}

	errs := wizard.FieldErrors{}
	for _, step := range def.Steps {
		if step.ID == def.VerificationStep {
			continue
		}
		for field, p := range step.Check(ctx, fields, fields) {
			if _, exists := errs[field]; !exists {
				errs[field] = p
			}
		}
	}
	return errs, nil
}

// Persisted drops transient fields such as the verification code.
func Persisted(fields wizard.Fields) wizard.Fields {
	out := fields.Clone()
	delete(out, FieldCode)
	return out
}

var (
	nameRule  = validation.Rule{Required: true, MinLength: 2, MaxLength: 100}
	phoneRule = validation.Rule{Required: true, Pattern: utils.MobilePattern, PatternCode: "phone", Normalize: utils.NormalizeMobile}
	emailRule = validation.Rule{MaxLength: 254, Pattern: utils.EmailPattern, PatternCode: "email"}
	placeRule = validation.Rule{MaxLength: 100}
	pincode   = validation.Rule{Pattern: utils.PincodePattern, PatternCode: "pincode"}
	codeRule  = validation.Rule{Required: true, Pattern: utils.OTPPattern, PatternCode: "otp"}
	documents = wizard.StepDefinition{ID: StepDocuments, Optional: true, AcceptsUploads: true}
)

func registration(checker CodeChecker) Definition {
	return Definition{
		Name:             entity.FlowRegistration,
		VerificationStep: StepVerification,
		FieldOrder:       []string{"name", "phone", "email", "state", "district", "village", "pincode"},
		Steps: []wizard.StepDefinition{
			{
				ID:             "identity",
				RequiredFields: []string{"name", "phone"},
				Fields:         []string{"email", "state", "district", "village", "pincode"},
				Validate: wizard.RulesValidator(validation.Rules{
					"name":     nameRule,
					"phone":    phoneRule,
					"email":    emailRule,
					"state":    placeRule,
					"district": placeRule,
					"village":  placeRule,
					"pincode":  pincode,
				}),
			},
			verificationStep(entity.FlowRegistration, checker),
			documents,
		},
	}
}

func youthLeadership(checker CodeChecker) Definition {
	email := emailRule
	email.Required = true

	return Definition{
		Name:             entity.FlowYouthLeadership,
		VerificationStep: StepVerification,
		FieldOrder:       []string{"name", "phone", "email", "age", "state", "education", "occupation", "motivation"},
		Steps: []wizard.StepDefinition{
			{
				ID:             "personal",
				RequiredFields: []string{"name", "phone", "email", "age", "state"},
				Validate: wizard.RulesValidator(validation.Rules{
					"name":  nameRule,
					"phone": phoneRule,
					"email": email,
					"age":   {Required: true, Min: validation.Float(18), Max: validation.Float(35)},
					"state": {Required: true, MaxLength: 100},
				}),
			},
			{
				ID:             "background",
				RequiredFields: []string{"education", "motivation"},
				Fields:         []string{"occupation"},
				Validate: wizard.RulesValidator(validation.Rules{
					"education":  {Required: true, MaxLength: 200},
					"motivation": {Required: true, MinLength: 50, MaxLength: 1000},
					"occupation": placeRule,
				}),
			},
			verificationStep(entity.FlowYouthLeadership, checker),
			documents,
		},
	}
}

func verificationStep(flowName string, checker CodeChecker) wizard.StepDefinition {
	return wizard.StepDefinition{
		ID:             StepVerification,
		RequiredFields: []string{FieldCode},
		Validate: wizard.Chain(
			wizard.RulesValidator(validation.Rules{FieldCode: codeRule}),
			checkCode(flowName, checker),
		),
	}
}

// checkCode asks the verification collaborator about a well-formed code. The
// phone number comes from the aggregate data of the earlier steps.
func checkCode(flowName string, checker CodeChecker) wizard.ValidateFunc {
	return func(ctx context.Context, input, aggregate wizard.Fields) wizard.FieldErrors {
		code := strings.TrimSpace(input[FieldCode])
		// A nil checker accepts any well-formed code.
		if checker == nil || !utils.OTPPattern.MatchString(code) {
			return nil
		}
		ok, err := checker.Check(ctx, Subject(flowName, aggregate["phone"]), code)
		if err != nil {
			return wizard.FieldErrors{FieldCode: {Code: validation.CodeUnavailable}}
		}
		if !ok {
			return wizard.FieldErrors{FieldCode: {Code: validation.CodeInvalidCode}}
		}
		return nil
	}
}
