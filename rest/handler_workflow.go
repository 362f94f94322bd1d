package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/praxis-ai/praxis/engine"
	"github.com/praxis-ai/praxis/logger"
	"github.com/praxis-ai/praxis/model"
	"go.uber.org/zap"
)

func (s *Server) HandleRegisterWorkflow(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := s.registry.Register(req.Workflow, req.Metadata, req.Overwrite); err != nil {
		if errors.Is(err, model.ErrDuplicateName) {
			respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"name": req.Workflow.Name})
}

func (s *Server) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	def, err := s.registry.FindByName(name)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	meta, _ := s.registry.GetMetadata(name)
	respondWithJSON(w, http.StatusOK, map[string]any{"workflow": def, "metadata": meta})
}

func (s *Server) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.registry.ListAll())
}

func (s *Server) HandleRemoveWorkflow(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.registry.Remove(name); err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (s *Server) HandleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req model.WorkflowRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if r.URL.Query().Get("async") == "true" {
		runId, err := s.asyncRunner.Submit(engine.AsyncRequest{Workflow: name, Input: req.Input})
		if err != nil {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		respondWithJSON(w, http.StatusAccepted, map[string]string{"runId": runId})
		return
	}
	def, err := s.registry.FindByName(name)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	res, err := s.agent.ExecuteWorkflow(r.Context(), def, req.Input)
	if err != nil {
		logger.Error("workflow run failed", zap.String("workflow", name), zap.Error(err))
		respondWithJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "result": res})
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}
