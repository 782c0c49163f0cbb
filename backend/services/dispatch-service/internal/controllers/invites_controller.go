package controllers

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/constants"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/dtos"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/routes"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/services"
	internal_utils "github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/utils"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
)

var respondPage = template.Must(template.New("respond").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .TermsForm}}
<form method="POST" action="{{.Action}}">
<input type="hidden" name="action" value="accept">
<input type="hidden" name="token" value="{{.Token}}">
<input type="hidden" name="tos_ack" value="true">
<button type="submit">I accept the terms for this job</button>
</form>
{{end}}
</body>
</html>
`))

type respondPageData struct {
	Title     string
	Message   string
	TermsForm bool
	Action    string
	Token     string
}

var outcomeStatus = map[services.Outcome]int{
	services.OutcomeBound:             http.StatusOK,
	services.OutcomeDeclined:          http.StatusOK,
	services.OutcomeNoLongerAvailable: http.StatusGone,
	services.OutcomeInvalidOrExpired:  http.StatusGone,
	services.OutcomeTermsRequired:     http.StatusUnprocessableEntity,
}

var outcomeTitle = map[services.Outcome]string{
	services.OutcomeBound:             "Job assigned",
	services.OutcomeDeclined:          "Invite declined",
	services.OutcomeNoLongerAvailable: "Job unavailable",
	services.OutcomeInvalidOrExpired:  "Job unavailable",
	services.OutcomeTermsRequired:     "Terms required",
}

// InvitesController handles the links drivers click in invite emails.
type InvitesController struct {
	resolver *services.ResponseResolver
}

func NewInvitesController(r *services.ResponseResolver) *InvitesController {
	return &InvitesController{resolver: r}
}

// GET|POST /api/v1/invites/respond
func (c *InvitesController) RespondHandler(w http.ResponseWriter, r *http.Request) {
	logger := utils.Logger.WithField("handler", "RespondHandler")

	if err := r.ParseForm(); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid form payload", nil, err)
		return
	}
	wantsJSON := r.Form.Get("format") == "json" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")

	in := services.RespondInput{
		Token:     r.Form.Get("token"),
		Action:    r.Form.Get("action"),
		TermsAck:  r.Form.Get("tos_ack") == "true",
		OriginIP:  internal_utils.ClientIP(r),
		UserAgent: r.UserAgent(),
	}

	res, err := c.resolver.Respond(r.Context(), in)
	if err != nil {
		var appErr *utils.AppError
		if !wantsJSON && errors.As(err, &appErr) && appErr.StatusCode < http.StatusInternalServerError {
			c.renderPage(w, appErr.StatusCode, respondPageData{Title: "Invalid link", Message: appErr.Message})
			return
		}
		logger.WithError(err).Warn("Respond failed")
		utils.HandleAppError(w, err)
		return
	}

	status := outcomeStatus[res.Outcome]
	if wantsJSON {
		body := dtos.RespondResponse{Status: string(res.Outcome), Message: res.Message}
		if res.Outcome == services.OutcomeTermsRequired {
			body.Code = utils.ErrCodeTermsNotAcknowledged
		}
		utils.RespondWithJSON(w, status, body)
		return
	}

	data := respondPageData{Title: outcomeTitle[res.Outcome], Message: res.Message}
	if res.Outcome == services.OutcomeTermsRequired {
		data.TermsForm = true
		data.Action = routes.InvitesRespond
		data.Token = in.Token
	}
	c.renderPage(w, status, data)
}

func (c *InvitesController) renderPage(w http.ResponseWriter, status int, data respondPageData) {
	if data.Message == "" {
		data.Message = constants.MsgUnavailable
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := respondPage.Execute(w, data); err != nil {
		utils.Logger.WithError(err).Error("Failed to render respond page")
	}
}
