package api

import (
	"encoding/json"
	"net/http"

	"course-membership/internal/domain"
	"course-membership/internal/infra/logging"
)

// Transport-only codes. Domain failures use domain.Code.
const (
	codeRateLimited  = "RATE_LIMITED"
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var statusByCode = map[domain.Code]int{
	domain.CodeNotFound:               http.StatusNotFound,
	domain.CodeInvalidArgument:        http.StatusBadRequest,
	domain.CodeInvalidAmount:          http.StatusBadRequest,
	domain.CodeInvalidStateTransition: http.StatusBadRequest,
	domain.CodeInvalidPlanType:        http.StatusBadRequest,
	domain.CodeDeadlineExpired:        http.StatusConflict,
	domain.CodeSeatExhausted:          http.StatusConflict,
	domain.CodeLockNotAcquired:        http.StatusConflict,
	domain.CodePaymentFailed:          http.StatusPaymentRequired,
	domain.CodePaymentOutcomeUnknown:  http.StatusAccepted,
	domain.CodePersistenceFailure:     http.StatusServiceUnavailable,
	domain.CodeGatewayUnavailable:     http.StatusServiceUnavailable,
	domain.CodeCompensationFailed:     http.StatusInternalServerError,
}

func statusOf(code domain.Code) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func (s *Server) msg(code string) string {
	if s.tr == nil {
		return code
	}
	return s.tr.T(code)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.CodeOf(err)
	status := statusOf(code)
	l := logging.With(r.Context(), s.log)
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("code", string(code)).Msg("request failed")
	} else {
		l.Debug().Err(err).Str("code", string(code)).Msg("request rejected")
	}
	if domain.Retryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorBody{Code: string(code), Message: s.msg(string(code))})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return domain.ErrInvalidArgument
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidArgument
	}
	return nil
}
