package scheduling

import (
	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/solver"
)

// InvariantTolerance is the absolute slack allowed when checking a solved
// schedule.
const InvariantTolerance = 1e-6

// Extract turns a solver result into a schedule. Failed results are
// returned as *SolveError without a schedule; a successful result that
// breaks an invariant is returned as *model.InvariantError.
func (p *Problem) Extract(res *solver.Result, tol float64) (*model.Schedule, error) {
	if res == nil {
		return nil, &SolveError{Status: solver.StatusUnknown.String(), Message: "no result"}
	}
	if !res.Status.Success() {
		return nil, &SolveError{Status: res.Status.String(), Message: res.Message}
	}
	x := res.X
	s := &model.Schedule{
		Horizon: p.Horizon,
		Prices:  make([]float64, p.Horizon),
		Cost:    p.Cost.Eval(x),
		Status:  res.Status.String(),
		Method:  res.Method,
		Starts:  res.Starts,
	}
	for h, price := range p.Prices {
		s.Prices[h] = price.Eval(x)
	}
	for _, cv := range p.Cohorts {
		rate, storage := cv.Values(x)
		s.Cohorts = append(s.Cohorts, model.CohortSchedule{
			Cohort:  cv.Cohort,
			Name:    cv.Cohort.Name,
			Rate:    rate,
			Storage: storage,
		})
	}
	if err := s.Validate(tol); err != nil {
		return nil, err
	}
	return s, nil
}
