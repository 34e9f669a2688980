package application

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hypewave/cheermeter/internal/domain"
	"github.com/hypewave/cheermeter/internal/ports"
)

// Composite score weights: crowd loudness dominates, expression refines.
const (
	audioWeight      = 0.6
	expressionWeight = 0.4
)

// EndSession finalizes a session exactly once: it computes per-group
// composite scores, ranks the groups, and broadcasts the result to the
// session scope. Duplicate triggers lose the finalize-once check-and-set
// and are silently absorbed. If anything fails after the marker was won,
// the marker is rolled back so a retry can succeed.
func (r *Registry) EndSession(clientID string, ev SessionEndEvent) error {
	state, ok := r.sessions[ev.SessionID]
	if !ok {
		return domain.NewSessionNotFound(ev.SessionID)
	}

	if !state.session.MarkFinalized() {
		r.logger.Info("duplicate session end ignored", zap.String("session_id", ev.SessionID))
		return nil
	}

	result, err := r.buildSessionResult(state)
	if err == nil {
		err = r.broadcaster.Publish(ports.SessionScope(ev.SessionID), EventSessionResults, result)
	}
	if err != nil {
		state.session.UnmarkFinalized()
		return fmt.Errorf("finalizing session %s: %w", ev.SessionID, err)
	}

	state.scorer.ResetHighScore()
	r.logger.Info("session ended",
		zap.String("session_id", ev.SessionID),
		zap.String("winner_group_id", result.WinnerGroupID),
	)
	if r.metrics != nil {
		r.metrics.RecordCounter("sessions_finalized_total", 1, nil)
	}
	return nil
}

// buildSessionResult computes the immutable ranked snapshot for a
// session. Groups are ranked by total score descending with a stable
// sort, so equal totals keep first-join order.
func (r *Registry) buildSessionResult(state *sessionState) (domain.SessionResult, error) {
	results := make([]domain.GroupResult, 0, len(state.session.Groups))
	for _, groupID := range state.session.GroupOrder {
		group, ok := state.session.Groups[groupID]
		if !ok {
			return domain.SessionResult{}, fmt.Errorf("group order references unknown group %q", groupID)
		}
		results = append(results, buildGroupResult(group, state.accumulators[groupID]))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScore > results[j].TotalScore
	})

	var winner string
	if len(results) > 0 {
		winner = results[0].GroupID
	}

	return domain.SessionResult{
		ID:            uuid.NewString(),
		SessionID:     state.session.ID,
		Results:       results,
		WinnerGroupID: winner,
		CreatedAt:     r.now(),
	}, nil
}

// buildGroupResult aggregates one group's accumulator into its result
// row. A nil accumulator (possible only if the group never streamed and
// healing never ran) aggregates as all zeroes.
func buildGroupResult(group *domain.Group, acc *domain.GroupAccumulator) domain.GroupResult {
	if acc == nil {
		acc = domain.NewGroupAccumulator()
	}

	audioScore := math.Min(100, mean(acc.AudioScores))
	expressionScore := mean(acc.ExpressionScores)
	totalScore := audioWeight*audioScore + expressionWeight*expressionScore

	var avgDB, avgHighFreq float64
	if n := len(acc.AudioDetails); n > 0 {
		for _, d := range acc.AudioDetails {
			avgDB += d.DBValue
			avgHighFreq += d.HighFreqPercentage
		}
		avgDB /= float64(n)
		avgHighFreq /= float64(n)
	}

	var bestMoment *float64
	if ts, ok := acc.BestMomentTimestamp(); ok {
		bestMoment = &ts
	}

	return domain.GroupResult{
		GroupID:         group.ID,
		GroupName:       group.Name,
		AudioScore:      round2(audioScore),
		ExpressionScore: round2(expressionScore),
		TotalScore:      round2(totalScore),
		AudioDetails: domain.AudioSummary{
			AvgScore:              round2(mean(acc.AudioScores)),
			MaxScore:              round2(maxValue(acc.AudioScores)),
			AvgDB:                 round2(avgDB),
			AvgHighFreqPercentage: round2(avgHighFreq),
			SampleCount:           len(acc.AudioScores),
		},
		ExpressionDetails: domain.ExpressionSummary{
			AvgScore: round2(mean(acc.ExpressionScores)),
			MaxScore: round2(maxValue(acc.ExpressionScores)),
		},
		BestMomentTimestamp: bestMoment,
	}
}

// mean returns the arithmetic mean, falling back to 0 for empty series.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// maxValue returns the largest value, falling back to 0 for empty series.
func maxValue(values []float64) float64 {
	var m float64
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

// round2 rounds to two decimals for the wire payload.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
