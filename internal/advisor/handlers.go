package advisor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/gateway/assistant"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/gateway/traffic"
	"github.com/urbanize/urbanize-backend/internal/logger"
	"github.com/urbanize/urbanize-backend/internal/utils"
)

type handlers struct {
	ai       Assistant
	segments SegmentSource
}

type chatRequest struct {
	Messages *[]assistant.Message `json:"messages"`
	Context  string               `json:"context"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

func (h handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if req.Messages == nil {
		utils.WriteError(w, apperr.Invalid("", "Messages must be an array"))
		return
	}
	for _, m := range *req.Messages {
		if m.Role == "" || m.Content == "" {
			utils.WriteError(w, apperr.Invalid("", "Invalid message format"))
			return
		}
	}

	cc := assistant.ChatContext{Context: req.Context}
	if req.Location != nil {
		cc.Location = &provider.Coordinates{Lat: req.Location.Latitude, Lon: req.Location.Longitude}
	}
	reply, err := h.ai.Chat(r.Context(), *req.Messages, cc)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": reply})
}

func (h handlers) Optimize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Area string `json:"area"`
		Data any    `json:"data"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	out, err := h.ai.Optimize(r.Context(), req.Area, req.Data)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"suggestions": out})
}

func (h handlers) UrbanOptimization(w http.ResponseWriter, r *http.Request) {
	var in assistant.OptimizationInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	if in.Location.Lat == 0 || in.Location.Lng == 0 {
		utils.WriteError(w, apperr.Invalid("location", "Valid location coordinates required"))
		return
	}

	client, _ := utils.GetClientKeyFromContext(r.Context())
	logger.L().Info("urban_optimization_requested",
		"client", client,
		"lat", in.Location.Lat, "lng", in.Location.Lng,
		"zones", len(in.NearbyZones), "reports", len(in.Reports))

	out, err := h.ai.UrbanOptimization(r.Context(), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"suggestions": out})
}

type coordinateRequest struct {
	Location    string    `json:"location"`
	Coordinates []float64 `json:"coordinates"`
}

// PredictionResponse carries the model's text and the readings it was based on.
type PredictionResponse struct {
	Prediction  string                `json:"prediction"`
	TrafficData assistant.TrafficPair `json:"trafficData"`
}

// PredictCongestion expects coordinates as [lng, lat]. Traffic lookups that fail are
// passed to the model as missing data.
func (h handlers) PredictCongestion(w http.ResponseWriter, r *http.Request) {
	var req coordinateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if len(req.Coordinates) != 2 {
		utils.WriteError(w, apperr.Invalid("coordinates", "Valid coordinates required"))
		return
	}

	lng, lat := req.Coordinates[0], req.Coordinates[1]
	at := provider.Coordinates{Lat: lat, Lon: lng}
	tp := assistant.TrafficPair{
		Current:  h.segment(r.Context(), at, false),
		Future:   h.segment(r.Context(), at, true),
		Location: assistant.LatLng{Lat: lat, Lng: lng},
	}

	location := req.Location
	if location == "" {
		location = fmt.Sprintf("%g, %g", lat, lng)
	}
	prediction, err := h.ai.PredictCongestion(r.Context(), location, tp)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, PredictionResponse{Prediction: prediction, TrafficData: tp})
}

func (h handlers) segment(ctx context.Context, at provider.Coordinates, future bool) *traffic.FlowSegment {
	if h.segments == nil {
		return nil
	}
	var (
		seg traffic.FlowSegment
		err error
	)
	if future {
		seg, err = h.segments.Future(ctx, at)
	} else {
		seg, err = h.segments.CurrentSegment(ctx, at)
	}
	if err != nil {
		logger.L().Warn("congestion_segment_unavailable", "lat", at.Lat, "lon", at.Lon, "future", future, "err", err)
		return nil
	}
	return &seg
}

func (h handlers) AnalyzeTraffic(w http.ResponseWriter, r *http.Request) {
	var req coordinateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	out, err := h.ai.AnalyzeTraffic(r.Context(), req.Location, req.Coordinates)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"analysis": out})
}
