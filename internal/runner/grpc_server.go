package runner

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/logger"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
)

// LoadControlGRPCServer implements LoadControlServer using a RunStore backend.
type LoadControlGRPCServer struct {
	store    *RunStore
	Executor *RunExecutor
}

func NewLoadControlGRPCServer(store *RunStore, executor *RunExecutor) *LoadControlGRPCServer {
	return &LoadControlGRPCServer{
		store:    store,
		Executor: executor,
	}
}

// CreateRun expects {run_id?, config_yaml, callback_url?, callback_secret?}
func (s *LoadControlGRPCServer) CreateRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	configYAML := stringField(req, "config_yaml")
	if configYAML == "" {
		return nil, status.Error(codes.InvalidArgument, "config_yaml is required")
	}

	rec, err := s.store.Create(stringField(req, "run_id"), RunInput{
		ConfigYAML:     configYAML,
		CallbackURL:    stringField(req, "callback_url"),
		CallbackSecret: stringField(req, "callback_secret"),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrRunExists):
			return nil, status.Error(codes.AlreadyExists, err.Error())
		case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrInvalidRunID):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	logger.Info("run created", "run_id", rec.Run.ID)
	return runResponse(rec, false)
}

func (s *LoadControlGRPCServer) StartRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}

	updated, err := s.Executor.Start(runID)
	if err != nil {
		return nil, executorStatus(err)
	}

	logger.Info("run started (executor)", "run_id", runID)
	return runResponse(updated, false)
}

func (s *LoadControlGRPCServer) StopRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}

	updated, err := s.Executor.Stop(runID)
	if err != nil {
		return nil, executorStatus(err)
	}
	logger.Info("run cancelled", "run_id", runID)
	return runResponse(updated, false)
}

// GetRun returns the run and, once available, its stats
func (s *LoadControlGRPCServer) GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	rec, ok := s.store.Get(runID)
	if !ok {
		return nil, status.Error(codes.NotFound, "run not found")
	}
	if rec.Stats == nil {
		if live, err := s.store.Stats(runID); err == nil {
			rec.Stats = live
		}
	}
	return runResponse(rec, true)
}

func executorStatus(err error) error {
	switch {
	case errors.Is(err, ErrRunNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrRunIDMissing):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrRunTerminal):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func runResponse(rec *RunRecord, withStats bool) (*structpb.Struct, error) {
	fields := map[string]any{
		"run": runToJSON(&rec.Run),
	}
	if withStats && rec.Stats != nil {
		stats, err := statsToMap(rec.Stats)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		fields["stats"] = stats
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// statsToMap goes through JSON so the result holds only types structpb
// accepts.
func statsToMap(stats *models.RunStats) (map[string]any, error) {
	data, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
