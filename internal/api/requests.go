package api

import (
	"fmt"
	"time"

	"github.com/schedcu/surgopt/internal/emergency"
	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/optimizer"
	"github.com/schedcu/surgopt/internal/validation"
)

// OptimizeRequest is the POST /api/optimize request body.
type OptimizeRequest struct {
	ScheduleDate             string   `json:"schedule_date"`
	MaxIterations            int      `json:"max_iterations"`
	TimeLimitSeconds         int      `json:"time_limit_seconds"`
	MaxNoImprovement         int      `json:"max_no_improvement"`
	Algorithm                string   `json:"algorithm"`
	TabuTenure               int      `json:"tabu_tenure"`
	DiversificationThreshold int      `json:"diversification_threshold"`
	IntensificationThreshold int      `json:"intensification_threshold"`
	Async                    bool     `json:"async"`
}

var knownAlgorithms = map[string]optimizer.Algorithm{
	string(optimizer.BasicTabu):    optimizer.BasicTabu,
	string(optimizer.AdaptiveTabu): optimizer.AdaptiveTabu,
	string(optimizer.ReactiveTabu): optimizer.ReactiveTabu,
	string(optimizer.HybridTabu):   optimizer.HybridTabu,
}

// ToParams validates req and converts it into optimizer.Params, merging
// with DefaultParams for any zero-valued field. The returned
// validation.Result carries warnings (e.g. an unrecognized algorithm,
// silently defaulted) even when the request is otherwise valid. Shared
// by the HTTP handler and the optimizectl CLI so both enforce
// identical parameter bounds.
func (req OptimizeRequest) ToParams() (optimizer.Params, time.Time, *validation.Result) {
	result := validation.NewResult()
	params := optimizer.DefaultParams()

	date, err := time.Parse("2006-01-02", req.ScheduleDate)
	if err != nil {
		result.AddError(validation.CodeInvalidScheduleDate, fmt.Sprintf("schedule_date %q is not a valid YYYY-MM-DD date", req.ScheduleDate))
	}

	if req.MaxIterations != 0 {
		if req.MaxIterations < 1 || req.MaxIterations > 100000 {
			result.AddError(validation.CodeMaxIterationsOutOfRange, fmt.Sprintf("max_iterations must be in [1, 100000], got %d", req.MaxIterations))
		} else {
			params.MaxIterations = req.MaxIterations
		}
	}

	if req.TimeLimitSeconds != 0 {
		if req.TimeLimitSeconds < 1 {
			result.AddError(validation.CodeTimeLimitOutOfRange, fmt.Sprintf("time_limit_seconds must be positive, got %d", req.TimeLimitSeconds))
		} else {
			params.TimeLimit = time.Duration(req.TimeLimitSeconds) * time.Second
		}
	}

	if req.MaxNoImprovement != 0 {
		params.MaxNoImprovement = req.MaxNoImprovement
	}

	if req.Algorithm != "" {
		if alg, ok := knownAlgorithms[req.Algorithm]; ok {
			params.Algorithm = alg
		} else {
			result.AddWarning(validation.CodeUnknownAlgorithm, fmt.Sprintf("algorithm %q not recognized, defaulting to %s", req.Algorithm, optimizer.BasicTabu))
		}
	}

	if req.TabuTenure != 0 {
		if req.TabuTenure < 1 || req.TabuTenure > 1000 {
			result.AddError(validation.CodeTabuTenureOutOfRange, fmt.Sprintf("tabu_tenure must be in [1, 1000], got %d", req.TabuTenure))
		} else {
			params.TabuTenure = req.TabuTenure
		}
	}

	if req.DiversificationThreshold != 0 {
		params.DiversificationThreshold = req.DiversificationThreshold
	}
	if req.IntensificationThreshold != 0 {
		params.IntensificationThreshold = req.IntensificationThreshold
	}

	return params, date, result
}

// FeasibilityCheckRequest is the POST /api/feasibility/check request body.
type FeasibilityCheckRequest struct {
	ScheduleDate string              `json:"schedule_date"`
	SurgeryID    entity.SurgeryID    `json:"surgery_id"`
	RoomID       entity.RoomID       `json:"room_id"`
	Start        time.Time           `json:"start"`
	End          time.Time           `json:"end"`
	Schedule     entity.Schedule     `json:"schedule"`
}

// EmergencyRequest is the POST /api/emergency request body.
type EmergencyRequest struct {
	ScheduleDate      string                `json:"schedule_date"`
	Surgery           entity.Surgery        `json:"surgery"`
	Priority          string                `json:"priority"`
	Arrival           time.Time             `json:"arrival"`
	MaxWaitSeconds    *int                  `json:"max_wait_seconds,omitempty"`
	RequiredSurgeonID *entity.SurgeonID     `json:"required_surgeon_id,omitempty"`
	AllowBumping      bool                  `json:"allow_bumping"`
	AllowOvertime     bool                  `json:"allow_overtime"`
	AllowBackupRooms  bool                  `json:"allow_backup_rooms"`
	Schedule          entity.Schedule       `json:"schedule"`
	ReoptimizeBudgetSeconds int             `json:"reoptimize_budget_seconds"`
}

var knownPriorities = map[string]emergency.Priority{
	string(emergency.PriorityImmediate):  emergency.PriorityImmediate,
	string(emergency.PriorityUrgent):     emergency.PriorityUrgent,
	string(emergency.PrioritySemiUrgent): emergency.PrioritySemiUrgent,
	string(emergency.PriorityNonUrgent):  emergency.PriorityNonUrgent,
}

// toRequest validates req and converts it into an emergency.Request.
func (req EmergencyRequest) toRequest() (emergency.Request, *validation.Result) {
	result := validation.NewResult()

	priority, ok := knownPriorities[req.Priority]
	if !ok {
		result.AddError(validation.CodeUnknownEmergencyPriority, fmt.Sprintf("priority %q not recognized", req.Priority))
	}

	out := emergency.Request{
		Surgery:           req.Surgery,
		Priority:          priority,
		Arrival:           req.Arrival,
		RequiredSurgeonID: req.RequiredSurgeonID,
		AllowBumping:      req.AllowBumping,
		AllowOvertime:     req.AllowOvertime,
		AllowBackupRooms:  req.AllowBackupRooms,
	}
	if req.MaxWaitSeconds != nil {
		d := time.Duration(*req.MaxWaitSeconds) * time.Second
		out.MaxWait = &d
	}
	return out, result
}
