package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"outbreaksim/app"
	"outbreaksim/domain/stats"
	"outbreaksim/internal/config"
	"outbreaksim/ports"
)

// ExperimentHandler runs experiments submitted as YAML and stores their
// records in the result repository.
type ExperimentHandler struct {
	service *app.ExperimentService
	repo    ports.ResultRepository
	logger  *zap.Logger
}

func NewExperimentHandler(service *app.ExperimentService, repo ports.ResultRepository, logger *zap.Logger) *ExperimentHandler {
	return &ExperimentHandler{service: service, repo: repo, logger: logger}
}

// ExperimentResponse summarises a finished run.
type ExperimentResponse struct {
	RunID          string         `json:"run_id"`
	Fingerprint    string         `json:"fingerprint"`
	Network        string         `json:"network"`
	ParameterSets  int            `json:"parameter_sets"`
	Batches        int            `json:"batches"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
	Records        []stats.Record `json:"records"`
}

// RunExperiment handles POST /experiments. File outputs named in the
// experiment are ignored; records go to the repository only.
func (h *ExperimentHandler) RunExperiment(c *gin.Context) {
	exp, err := config.ParseExperiment(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}

	exp.Output = config.OutputConfig{}

	g, err := app.BuildNetwork(exp, "")
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.service.Run(c.Request.Context(), app.ExperimentRequest{
		Experiment: exp,
		Network:    g,
		Sinks:      []ports.ResultSink{h.repo},
	})
	if err != nil {
		h.logger.Error("experiment failed", zap.String("experiment", exp.Name), zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ExperimentResponse{
		RunID:          res.RunID.String(),
		Fingerprint:    res.Manifest.Fingerprint.Hash.String(),
		Network:        res.NetworkName,
		ParameterSets:  len(res.Parameters),
		Batches:        len(res.Batches),
		ElapsedSeconds: res.Elapsed.Seconds(),
		Records:        res.Records,
	})
}
