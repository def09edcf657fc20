package http

import (
	"net/http"

	"github.com/anuragpardeshii/MediCare/pkg/httputil"
	"github.com/anuragpardeshii/MediCare/pkg/pagination"
	"github.com/anuragpardeshii/MediCare/pkg/validator"
)

const maxBodyBytes = 1 << 20

// listResponse is the envelope for collection endpoints. Count is the number
// of items on this page.
type listResponse[T any] struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	pagination.Result[T]
}

func writeList[T any](w http.ResponseWriter, items []T, total int, page pagination.Params) {
	res := pagination.NewResult(items, total, page)
	httputil.WriteJSON(w, http.StatusOK, listResponse[T]{
		Success: true,
		Count:   len(res.Data),
		Result:  res,
	})
}

// dataResponse wraps a single resource.
type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// messageResponse carries a bare confirmation message.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// decodeBody reads a JSON body of at most maxBodyBytes into dst and checks its
// validate tags. On failure the 400 has already been written.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		httputil.WriteValidationError(w, r, err)
		return false
	}
	return true
}
