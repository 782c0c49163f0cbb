package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	shared_dtos "github.com/driverpool/mono-repo/backend/shared/go-dtos"
	"github.com/driverpool/mono-repo/backend/shared/go-middleware"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func getAdminID(r *http.Request) (uuid.UUID, error) {
	adminID, ok := middleware.AdminIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, &utils.AppError{StatusCode: http.StatusUnauthorized, Code: utils.ErrCodeUnauthorized, Message: "Missing adminID in context"}
	}
	return adminID, nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, &utils.AppError{StatusCode: http.StatusBadRequest, Code: utils.ErrCodeInvalidPayload, Message: "Invalid id in path", Err: err}
	}
	return id, nil
}

// decodeAndValidate writes the error response itself and reports whether the
// handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return false
	}
	if err := v.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", shared_dtos.FromValidationErrors(validationErrs), err)
		} else {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation error", nil, err)
		}
		return false
	}
	return true
}
