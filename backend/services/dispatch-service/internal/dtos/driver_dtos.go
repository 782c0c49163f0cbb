package dtos

import "github.com/driverpool/mono-repo/backend/shared/go-models"

type CreateDriverRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	VehicleType string `json:"vehicle_type" validate:"required,max=50"`
}

type SetDriverStatusRequest struct {
	Status models.DriverStatusType `json:"status" validate:"required,oneof=PENDING APPROVED ACTIVE BLOCKED"`
}
