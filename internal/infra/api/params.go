package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"course-membership/internal/domain"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	return id, nil
}
