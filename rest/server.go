package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/praxis-ai/praxis/agent"
	"github.com/praxis-ai/praxis/engine"
	"github.com/praxis-ai/praxis/logger"
	"github.com/praxis-ai/praxis/registry"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port        int
	agent       *agent.Agent
	registry    *registry.Registry
	asyncRunner *engine.AsyncRunner
}

func NewServer(httpPort int, ag *agent.Agent, reg *registry.Registry, asyncRunner *engine.AsyncRunner) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr: fmt.Sprintf(":%d", httpPort),
		},
		agent:       ag,
		registry:    reg,
		asyncRunner: asyncRunner,
		Port:        httpPort,
	}

	router := mux.NewRouter()
	router.HandleFunc("/solve", s.HandleSolve).Methods(http.MethodPost)
	router.HandleFunc("/workflow", s.HandleRegisterWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/workflow", s.HandleListWorkflows).Methods(http.MethodGet)
	router.HandleFunc("/workflow/{name}", s.HandleGetWorkflow).Methods(http.MethodGet)
	router.HandleFunc("/workflow/{name}", s.HandleRemoveWorkflow).Methods(http.MethodDelete)
	router.HandleFunc("/workflow/{name}/execute", s.HandleRunWorkflow).Methods(http.MethodPost)
	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server")
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
