package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/go-chi/chi/v5"
)

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewValidationError("id", "is invalid")
	}
	return id, nil
}
