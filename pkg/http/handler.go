package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dialog-analyzer/pkg/analyzer"
	"dialog-analyzer/pkg/errors"
	"dialog-analyzer/pkg/messaging"
	"dialog-analyzer/pkg/metrics"
)

// AnalyzeRequest is the payload for POST /api/analyze
type AnalyzeRequest struct {
	File    string                `json:"file"`
	Windows []analyzer.TimeWindow `json:"windows"`
}

// AnalyzeResponse is the successful analysis payload
type AnalyzeResponse struct {
	AnalysisID string                    `json:"analysis_id"`
	File       string                    `json:"file"`
	Statistics analyzer.DialogStatistics `json:"statistics"`
	Timestamp  time.Time                 `json:"timestamp"`
}

// AnalyzeHandler measures agent reaction times for the requested windows
func (s *Server) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.NewEmptyInput("request body is not valid JSON"))
		return
	}
	if req.File == "" {
		errors.WriteError(w, errors.NewEmptyInput("no recording file specified"))
		return
	}

	analysisID := uuid.New().String()
	start := time.Now()

	stats, err := s.analyzer.AnalyzeMultipleTurns(req.File, req.Windows)
	if err != nil {
		metrics.RecordAnalysis("error", len(req.Windows), time.Since(start).Seconds())
		metrics.RecordError(errors.GetErrorCode(err))
		s.logger.WithError(err).WithFields(logrus.Fields{
			"analysis_id": analysisID,
			"file":        req.File,
		}).Warn("Dialog analysis failed")
		errors.WriteError(w, err)
		return
	}

	metrics.RecordAnalysis("ok", len(req.Windows), time.Since(start).Seconds())
	for _, result := range stats.Results {
		metrics.RecordReaction(result.ReactionTimeMS, result.IsGoodReaction)
	}

	resp := AnalyzeResponse{
		AnalysisID: analysisID,
		File:       req.File,
		Statistics: stats,
		Timestamp:  time.Now().UTC(),
	}

	s.hub.BroadcastResult(&ResultMessage{
		AnalysisID: resp.AnalysisID,
		File:       resp.File,
		Statistics: resp.Statistics,
		Timestamp:  resp.Timestamp,
	})

	if s.publisher != nil && s.publisher.IsConnected() {
		msg := &messaging.StatisticsMessage{
			AnalysisID: resp.AnalysisID,
			File:       resp.File,
			Statistics: resp.Statistics,
			Timestamp:  resp.Timestamp,
		}
		if err := s.publisher.PublishStatistics(msg); err != nil {
			s.logger.WithError(err).Warn("Failed to publish statistics to AMQP")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
