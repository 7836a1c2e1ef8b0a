package feasibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/schedcu/surgopt/internal/entity"
)

// ConstraintType classifies the kind of constraint a ConstraintViolation
// reports against.
type ConstraintType string

const (
	ConstraintEquipmentAvailability ConstraintType = "EquipmentAvailability"
	ConstraintStaffAvailability     ConstraintType = "StaffAvailability"
	ConstraintSurgeonSpecialization ConstraintType = "SurgeonSpecialization"
	ConstraintRoomCapacity          ConstraintType = "RoomCapacity"
	ConstraintTimeWindow            ConstraintType = "TimeWindow"
	ConstraintResourceConflict      ConstraintType = "ResourceConflict"
	ConstraintCustom                ConstraintType = "Custom"
)

// ConstraintSeverity ranks how much a violation should weigh in
// downstream decisions (e.g. which moves the neighborhood generator
// still proposes despite a soft violation).
type ConstraintSeverity string

const (
	SeverityCritical ConstraintSeverity = "Critical"
	SeverityHigh     ConstraintSeverity = "High"
	SeverityMedium   ConstraintSeverity = "Medium"
	SeverityLow      ConstraintSeverity = "Low"
)

// ConstraintViolation is a single structured failure produced by the
// Advanced oracle, as opposed to the plain bool the basic Oracle
// returns.
type ConstraintViolation struct {
	Type        ConstraintType
	Severity    ConstraintSeverity
	SurgeryID   entity.SurgeryID
	Description string
}

func (v ConstraintViolation) String() string {
	return fmt.Sprintf("[%s/%s] surgery %d: %s", v.Severity, v.Type, v.SurgeryID, v.Description)
}

// CustomRuleKind selects which built-in shape a CustomRule evaluates.
type CustomRuleKind string

const (
	// CustomRuleTimeWindow rejects assignments that start before
	// EarliestMinute or end after LatestMinute of the day.
	CustomRuleTimeWindow CustomRuleKind = "TimeWindow"
	// CustomRuleResourceCap rejects a schedule where more than MaxConcurrent
	// assignments referencing ResourceEquipment overlap at once.
	CustomRuleResourceCap CustomRuleKind = "ResourceCap"
	// CustomRuleMaxDuration rejects a surgery whose duration exceeds MaxDuration.
	CustomRuleMaxDuration CustomRuleKind = "MaxDuration"
)

// CustomRule is a configurable constraint beyond the fixed hard set,
// matching the three rule shapes the advanced checker supports:
// time-based, resource-based, and duration-based.
type CustomRule struct {
	Name             string
	Kind             CustomRuleKind
	Severity         ConstraintSeverity
	EarliestMinute   int // CustomRuleTimeWindow
	LatestMinute     int // CustomRuleTimeWindow
	ResourceEquip    entity.EquipmentID // CustomRuleResourceCap
	MaxConcurrent    int                // CustomRuleResourceCap
	MaxDuration      time.Duration      // CustomRuleMaxDuration
}

// AdvancedConfig configures the Advanced oracle.
type AdvancedConfig struct {
	Config

	// SpecializationKeywords maps a surgeon specialization (lowercase)
	// to the surgery-type-name keywords it qualifies for. A
	// specialization containing the substring "general" always
	// qualifies, matching the fallback rule in the original checker.
	SpecializationKeywords map[string][]string

	Rules []CustomRule
}

// DefaultSpecializationKeywords is the fixed substring index the
// original scheduler ships with.
func DefaultSpecializationKeywords() map[string][]string {
	return map[string][]string{
		"general surgery": {"appendectomy", "gallbladder", "hernia"},
		"orthopedic":      {"hip", "knee", "shoulder", "spine"},
		"cardiac":         {"heart", "cardiac", "bypass"},
		"neurosurgery":    {"brain", "spine", "neurological"},
		"plastic surgery": {"reconstruction", "cosmetic"},
		"emergency":       {"trauma", "emergency"},
	}
}

// Advanced wraps an Oracle to emit structured ConstraintViolation
// records instead of a single bool, and adds specialization matching
// and custom rules on top of the hard constraints.
type Advanced struct {
	*Oracle
	cfg AdvancedConfig
}

// NewAdvanced constructs an Advanced oracle. A nil or empty
// SpecializationKeywords map falls back to DefaultSpecializationKeywords.
func NewAdvanced(base *Oracle, cfg AdvancedConfig) *Advanced {
	if len(cfg.SpecializationKeywords) == 0 {
		cfg.SpecializationKeywords = DefaultSpecializationKeywords()
	}
	return &Advanced{Oracle: base, cfg: cfg}
}

// Evaluate runs every hard constraint plus specialization matching and
// custom rules against a single proposed assignment, returning every
// violation found rather than stopping at the first (unlike Feasible).
func (a *Advanced) Evaluate(surgeryID entity.SurgeryID, roomID entity.RoomID, start, end time.Time, others entity.Schedule, ignore *entity.SurgeryID) []ConstraintViolation {
	var violations []ConstraintViolation

	surgery, ok := a.ref.Surgery(surgeryID)
	if !ok {
		return []ConstraintViolation{{
			Type:        ConstraintResourceConflict,
			Severity:    SeverityCritical,
			SurgeryID:   surgeryID,
			Description: "surgery not found in reference data",
		}}
	}

	if !a.RoomAvailable(roomID, start, end, others, ignore) {
		violations = append(violations, ConstraintViolation{
			Type:        ConstraintRoomCapacity,
			Severity:    SeverityCritical,
			SurgeryID:   surgeryID,
			Description: fmt.Sprintf("room %d not available for requested interval", roomID),
		})
	}

	if !a.RoomSuitable(roomID, surgeryID) {
		violations = append(violations, ConstraintViolation{
			Type:        ConstraintEquipmentAvailability,
			Severity:    SeverityHigh,
			SurgeryID:   surgeryID,
			Description: fmt.Sprintf("room %d lacks required equipment", roomID),
		})
	}

	for _, eq := range surgery.RequiredEquipment {
		if !a.EquipmentAvailable(eq, start, end, others, ignore) {
			violations = append(violations, ConstraintViolation{
				Type:        ConstraintEquipmentAvailability,
				Severity:    SeverityHigh,
				SurgeryID:   surgeryID,
				Description: fmt.Sprintf("equipment %d unavailable", eq),
			})
		}
	}

	if surgery.RequiredSurgeonID != nil {
		surgeonID := *surgery.RequiredSurgeonID
		if !a.SurgeonAvailable(surgeonID, start, end, others, ignore) {
			violations = append(violations, ConstraintViolation{
				Type:        ConstraintStaffAvailability,
				Severity:    SeverityCritical,
				SurgeryID:   surgeryID,
				Description: fmt.Sprintf("surgeon %d not available for requested interval", surgeonID),
			})
		}
		if v, ok := a.specializationViolation(surgeonID, surgery); ok {
			violations = append(violations, v)
		}
	}

	if !a.sdstSatisfied(surgery, roomID, start, others, ignore) {
		violations = append(violations, ConstraintViolation{
			Type:        ConstraintTimeWindow,
			Severity:    SeverityMedium,
			SurgeryID:   surgeryID,
			Description: "insufficient setup time since preceding surgery in room",
		})
	}

	for _, rule := range a.cfg.Rules {
		if v, ok := a.evalRule(rule, surgery, roomID, start, end, others); ok {
			violations = append(violations, v)
		}
	}

	return violations
}

// specializationViolation reports a SurgeonSpecialization violation when
// none of the surgeon's declared specializations match the surgery
// type's name or keywords, per the keyword index. A specialization
// containing "general" always qualifies.
func (a *Advanced) specializationViolation(surgeonID entity.SurgeonID, surgery entity.Surgery) (ConstraintViolation, bool) {
	surgeon, ok := a.ref.Surgeon(surgeonID)
	if !ok || len(surgeon.Specialization) == 0 {
		return ConstraintViolation{}, false
	}
	st, ok := a.ref.SurgeryType(surgery.TypeID)
	if !ok {
		return ConstraintViolation{}, false
	}

	terms := append([]string{strings.ToLower(st.Name)}, lower(st.Keywords)...)

	for _, spec := range surgeon.Specialization {
		specLower := strings.ToLower(spec)
		if strings.Contains(specLower, "general") {
			return ConstraintViolation{}, false
		}
		keywords, known := a.cfg.SpecializationKeywords[specLower]
		if !known {
			continue
		}
		for _, kw := range keywords {
			for _, term := range terms {
				if strings.Contains(term, kw) {
					return ConstraintViolation{}, false
				}
			}
		}
	}

	return ConstraintViolation{
		Type:        ConstraintSurgeonSpecialization,
		Severity:    SeverityMedium,
		SurgeryID:   surgery.ID,
		Description: fmt.Sprintf("surgeon %d specialization does not match surgery type %q", surgeonID, st.Name),
	}, true
}

func lower(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}

func (a *Advanced) evalRule(rule CustomRule, surgery entity.Surgery, roomID entity.RoomID, start, end time.Time, others entity.Schedule) (ConstraintViolation, bool) {
	switch rule.Kind {
	case CustomRuleTimeWindow:
		startMin := minuteOfDay(start)
		endMin := minuteOfDay(end)
		if startMin < rule.EarliestMinute || endMin > rule.LatestMinute {
			return ConstraintViolation{
				Type:        ConstraintTimeWindow,
				Severity:    rule.Severity,
				SurgeryID:   surgery.ID,
				Description: fmt.Sprintf("rule %q: interval outside allowed window", rule.Name),
			}, true
		}
	case CustomRuleResourceCap:
		if !requiresEquipment(surgery, rule.ResourceEquip) {
			return ConstraintViolation{}, false
		}
		concurrent := 1
		for _, other := range others {
			os, ok := a.ref.Surgery(other.SurgeryID)
			if !ok || !requiresEquipment(os, rule.ResourceEquip) {
				continue
			}
			if start.Before(other.End) && other.Start.Before(end) {
				concurrent++
			}
		}
		if concurrent > rule.MaxConcurrent {
			return ConstraintViolation{
				Type:        ConstraintResourceConflict,
				Severity:    rule.Severity,
				SurgeryID:   surgery.ID,
				Description: fmt.Sprintf("rule %q: %d concurrent uses of equipment %d exceeds cap %d", rule.Name, concurrent, rule.ResourceEquip, rule.MaxConcurrent),
			}, true
		}
	case CustomRuleMaxDuration:
		if surgery.Duration > rule.MaxDuration {
			return ConstraintViolation{
				Type:        ConstraintCustom,
				Severity:    rule.Severity,
				SurgeryID:   surgery.ID,
				Description: fmt.Sprintf("rule %q: duration %s exceeds maximum %s", rule.Name, surgery.Duration, rule.MaxDuration),
			}, true
		}
	}
	return ConstraintViolation{}, false
}

// EvaluateSchedule runs Evaluate against every assignment in sched and
// concatenates the results.
func (a *Advanced) EvaluateSchedule(sched entity.Schedule) []ConstraintViolation {
	var all []ConstraintViolation
	for i, asn := range sched {
		others := make(entity.Schedule, 0, len(sched)-1)
		others = append(others, sched[:i]...)
		others = append(others, sched[i+1:]...)
		all = append(all, a.Evaluate(asn.SurgeryID, asn.RoomID, asn.Start, asn.End, others, nil)...)
	}
	return all
}
