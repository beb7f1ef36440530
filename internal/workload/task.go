package workload

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/config"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/utils"
)

// Request is a transport-neutral description of one HTTP call
type Request struct {
	Task   string
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// TaskContext is what a task may read when it builds its request
type TaskContext struct {
	Identity string
	Rand     Rand
	Clock    utils.Clock
}

// Task is one catalogue action. Path is the route template used for stats
// labels; the concrete path comes from Build.
type Task struct {
	Name   string
	Method string
	Path   string
	build  func(tc TaskContext) (*Request, error)
}

// Build produces the request for one execution of the task
func (t Task) Build(tc TaskContext) (*Request, error) {
	if t.build == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, t.Name)
	}
	if tc.Clock == nil {
		tc.Clock = utils.SystemClock{}
	}
	return t.build(tc)
}

var catalogue = map[string]Task{
	config.TaskSendMetric: {
		Name:   config.TaskSendMetric,
		Method: http.MethodPost,
		Path:   "/metrics",
		build:  buildSendMetric,
	},
	config.TaskGetAnalytics: {
		Name:   config.TaskGetAnalytics,
		Method: http.MethodGet,
		Path:   "/analytics/{device_id}",
		build: func(tc TaskContext) (*Request, error) {
			return getRequest(config.TaskGetAnalytics, "/analytics/"+url.PathEscape(tc.Identity)), nil
		},
	},
	config.TaskGetSummary:      staticGet(config.TaskGetSummary, "/summary"),
	config.TaskHealthCheck:     staticGet(config.TaskHealthCheck, "/health"),
	config.TaskGetAllAnalytics: staticGet(config.TaskGetAllAnalytics, "/analytics"),
	config.TaskGetCacheMetrics: staticGet(config.TaskGetCacheMetrics, "/cache-metrics"),
}

// LookupTask resolves a catalogue task by name
func LookupTask(name string) (Task, error) {
	task, ok := catalogue[name]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s (known: %s)", ErrUnknownTask, name, strings.Join(TaskNames(), ", "))
	}
	return task, nil
}

// TaskNames lists the catalogue in sorted order
func TaskNames() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildSendMetric(tc TaskContext) (*Request, error) {
	sample := NewMetricSample(tc.Identity, tc.Clock.Now(), tc.Rand)
	body, err := json.Marshal(sample)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metric sample: %w", err)
	}
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &Request{
		Task:   config.TaskSendMetric,
		Method: http.MethodPost,
		Path:   "/metrics",
		Header: header,
		Body:   body,
	}, nil
}

func staticGet(name, path string) Task {
	return Task{
		Name:   name,
		Method: http.MethodGet,
		Path:   path,
		build: func(TaskContext) (*Request, error) {
			return getRequest(name, path), nil
		},
	}
}

func getRequest(name, path string) *Request {
	return &Request{
		Task:   name,
		Method: http.MethodGet,
		Path:   path,
		Header: make(http.Header),
	}
}
