// Package storeapi defines the wire format of the session store HTTP API.
package storeapi

import "github.com/dkeye/Livecast/internal/domain"

type StartRequest struct {
	Broadcaster domain.ParticipantID `json:"broadcaster" msgpack:"broadcaster"`
	Offer       domain.Description   `json:"offer" msgpack:"offer"`
}

type StartResponse struct {
	SessionID domain.SessionID `json:"session_id" msgpack:"session_id"`
}

type JoinRequest struct {
	Viewer domain.ParticipantID `json:"viewer" msgpack:"viewer"`
}

type AnswerResponse struct {
	Viewer domain.ParticipantID `json:"viewer" msgpack:"viewer"`
	Answer domain.Description   `json:"answer" msgpack:"answer"`
}

type Candidates struct {
	Candidates []domain.Candidate `json:"candidates" msgpack:"candidates"`
}

type FinishedResponse struct {
	Finished bool `json:"finished" msgpack:"finished"`
}

type ErrorResponse struct {
	Code    string `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
}
