package rest

import (
	"encoding/json"
	"net/http"

	"github.com/praxis-ai/praxis/logger"
	"github.com/praxis-ai/praxis/model"
	"go.uber.org/zap"
)

func (s *Server) HandleSolve(w http.ResponseWriter, r *http.Request) {
	var req model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if len(req.Problem) == 0 {
		respondWithError(w, http.StatusBadRequest, "problem can not be empty")
		return
	}
	solution, err := s.agent.Solve(r.Context(), req.Problem, req.Params)
	if err != nil {
		logger.Error("solve failed", zap.String("problem", req.Problem), zap.Error(err))
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"solution": solution})
}
