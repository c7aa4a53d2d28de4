package http

import (
	"net/http"
	"strings"

	"github.com/dkeye/Livecast/internal/adapters/storeapi"
	"github.com/dkeye/Livecast/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	store   Store
	limiter *RateLimiter
	metrics *Metrics
}

func responseCodec(c *gin.Context) storeapi.Codec {
	if strings.Contains(c.GetHeader("Accept"), storeapi.ContentTypeMsgpack) {
		return storeapi.Msgpack
	}
	return storeapi.CodecFor(c.GetHeader("Content-Type"))
}

func respond(c *gin.Context, status int, v any) {
	codec := responseCodec(c)
	data, err := codec.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("encode response")
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(status, codec.ContentType(), data)
}

func respondErr(c *gin.Context, err error) {
	code, status := storeapi.Classify(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("route", c.FullPath()).Msg("store error")
	}
	respond(c, status, storeapi.ErrorResponse{Code: code, Message: err.Error()})
}

func bind(c *gin.Context, v any) bool {
	data, err := c.GetRawData()
	if err == nil {
		err = storeapi.CodecFor(c.GetHeader("Content-Type")).Unmarshal(data, v)
	}
	if err != nil {
		respond(c, http.StatusBadRequest, storeapi.ErrorResponse{Code: storeapi.CodeBadRequest, Message: err.Error()})
		return false
	}
	return true
}

func sessionParam(c *gin.Context) (domain.SessionID, bool) {
	sid, err := domain.ParseSessionID(c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return 0, false
	}
	return sid, true
}

func (h *handlers) startBroadcast(c *gin.Context) {
	var req storeapi.StartRequest
	if !bind(c, &req) {
		return
	}
	sid, err := h.store.StartBroadcast(c.Request.Context(), req.Broadcaster, req.Offer)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusCreated, storeapi.StartResponse{SessionID: sid})
}

func (h *handlers) joinAsViewer(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	if !h.limiter.Allow(c.ClientIP()) {
		if h.metrics != nil {
			h.metrics.throttled.Inc()
		}
		log.Warn().Str("module", "adapters.http").Str("ip", c.ClientIP()).Msg("join throttled")
		respondErr(c, storeapi.ErrRateLimited)
		return
	}
	var req storeapi.JoinRequest
	if !bind(c, &req) {
		return
	}
	if err := h.store.JoinAsViewer(c.Request.Context(), sid, req.Viewer); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) getOffer(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	offer, err := h.store.GetOffer(c.Request.Context(), sid, domain.ParticipantID(c.Query("viewer")))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, offer)
}

func (h *handlers) sendAnswer(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	var answer domain.Description
	if !bind(c, &answer) {
		return
	}
	if err := h.store.SendAnswer(c.Request.Context(), sid, domain.ParticipantID(c.Param("viewer")), answer); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) getAnswer(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	viewer, answer, err := h.store.GetAnswer(c.Request.Context(), sid)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, storeapi.AnswerResponse{Viewer: viewer, Answer: answer})
}

func (h *handlers) addBroadcasterCandidates(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	var req storeapi.Candidates
	if !bind(c, &req) {
		return
	}
	if err := h.store.AddBroadcasterCandidates(c.Request.Context(), sid, req.Candidates); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) addViewerCandidates(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	var req storeapi.Candidates
	if !bind(c, &req) {
		return
	}
	if err := h.store.AddViewerCandidates(c.Request.Context(), sid, domain.ParticipantID(c.Param("viewer")), req.Candidates); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) getBroadcasterCandidates(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	cs, err := h.store.GetBroadcasterCandidates(c.Request.Context(), sid, domain.ParticipantID(c.Query("viewer")))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, storeapi.Candidates{Candidates: cs})
}

func (h *handlers) getViewerCandidates(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	cs, err := h.store.GetViewerCandidates(c.Request.Context(), sid, domain.ParticipantID(c.Param("viewer")))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, storeapi.Candidates{Candidates: cs})
}

func (h *handlers) shouldFinish(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	done, err := h.store.ShouldFinish(c.Request.Context(), sid)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, storeapi.FinishedResponse{Finished: done})
}

func (h *handlers) finish(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	if err := h.store.Finish(sid); err != nil {
		respondErr(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("sid", sid.String()).Msg("session finished by operator")
	c.Status(http.StatusNoContent)
}
