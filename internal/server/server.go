package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"counterpoint/internal/core"
	"counterpoint/internal/core/analysis"
	"counterpoint/internal/core/common"
	"counterpoint/internal/core/model"
	"counterpoint/internal/export"
)

type Server struct {
	Studio *core.Studio
	Jobs   *Registry

	// AnimateInterval is the progress ticker period. Tests shorten it.
	AnimateInterval time.Duration
}

func NewServer(studio *core.Studio) *Server {
	return &Server{
		Studio:          studio,
		Jobs:            NewRegistry(),
		AnimateInterval: 250 * time.Millisecond,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/analyses", s.CreateAnalysis)
	api.GET("/analyses/:id", s.GetAnalysis)
	api.POST("/analyses/:id/deck", s.CreateDeck)
	api.GET("/analyses/:id/deck", s.GetDeck)
	api.GET("/analyses/:id/export", s.ExportAnalysis)
	api.POST("/import", s.ImportStudioFile)

	return r
}

type CreateAnalysisRequest struct {
	ChannelURL string `json:"channel_url"`
}

func (s *Server) CreateAnalysis(c *gin.Context) {
	var req CreateAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChannelURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel_url is required"})
		return
	}

	job := s.Jobs.NewJob(req.ChannelURL)
	// Transition before spawning so a poll right after the POST never sees
	// a pre-start idle job.
	s.Jobs.Update(job.ID, func(j *Job) {
		j.State = StateAnalyzing
	})
	go s.runAnalysis(job.ID, req.ChannelURL)

	c.JSON(http.StatusAccepted, gin.H{"id": job.ID})
}

func (s *Server) runAnalysis(id, channelURL string) {
	done := make(chan struct{})
	defer close(done)
	go s.Jobs.Animate(id, s.AnimateInterval, done)

	a, err := s.Studio.AnalyzeChannel(context.Background(), channelURL, func(stage analysis.Stage) {
		s.Jobs.SetCap(id, float64(int(stage)+1)/float64(analysis.Stages)*90)
	})
	if err != nil {
		log.Printf("analysis of %s failed: %v", channelURL, err)
		s.Jobs.Update(id, func(j *Job) {
			j.State = StateIdle
			j.Progress = 0
			j.cap = 0
			j.Error = failureMessage("analysis", err)
		})
		return
	}

	s.Jobs.Update(id, func(j *Job) {
		j.State = StateReady
		j.Progress = 100
		j.cap = 100
		j.Analysis = a
	})
}

// failureMessage folds provider, network and quota errors into one generic
// category; only malformed model output is called out separately, since the
// user's best response differs (retry vs. report).
func failureMessage(action string, err error) string {
	if errors.Is(err, common.ErrParse) {
		return fmt.Sprintf("%s failed: the model response could not be parsed, try again", action)
	}
	return fmt.Sprintf("%s failed: %v", action, err)
}

type dashboardNode struct {
	model.ThemeNode
	Radius int `json:"radius"`
}

type dashboardLink struct {
	model.ThemeLink
	Distance float64 `json:"distance"`
}

type clusterPayload struct {
	ID     int      `json:"id"`
	Themes []string `json:"themes"`
}

func dashboardPayload(a *model.Analysis) gin.H {
	nodes := make([]dashboardNode, 0, len(a.Nodes))
	for _, n := range a.Nodes {
		nodes = append(nodes, dashboardNode{ThemeNode: n, Radius: n.CollisionRadius()})
	}

	links := make([]dashboardLink, 0, len(a.Links))
	for _, l := range a.Links {
		links = append(links, dashboardLink{ThemeLink: l, Distance: l.Distance()})
	}

	byCluster := make(map[int][]string)
	for _, n := range a.Nodes {
		if n.Cluster > 0 {
			byCluster[n.Cluster] = append(byCluster[n.Cluster], n.ID)
		}
	}
	clusters := make([]clusterPayload, 0, len(byCluster))
	for id, themes := range byCluster {
		sort.Strings(themes)
		clusters = append(clusters, clusterPayload{ID: id, Themes: themes})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })

	return gin.H{
		"channel_url": a.ChannelURL,
		"analyzed_at": a.AnalyzedAt,
		"videos":      a.Videos,
		"nodes":       nodes,
		"links":       links,
		"clusters":    clusters,
	}
}

func (s *Server) GetAnalysis(c *gin.Context) {
	job, ok := s.Jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown analysis"})
		return
	}

	resp := gin.H{
		"id":          job.ID,
		"channel_url": job.ChannelURL,
		"state":       job.State,
		"progress":    job.Progress,
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	if job.Analysis != nil {
		resp["analysis"] = dashboardPayload(job.Analysis)
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateDeck(c *gin.Context) {
	id := c.Param("id")
	job, ok := s.Jobs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown analysis"})
		return
	}
	if job.Analysis == nil || (job.State != StateReady && job.State != StateComplete) {
		c.JSON(http.StatusConflict, gin.H{"error": "analysis is not ready"})
		return
	}

	prior := job.State
	s.Jobs.Update(id, func(j *Job) {
		j.State = StateGenerating
		j.Progress = 0
		j.cap = 10
		j.Error = ""
	})
	go s.runDeck(id, prior, job.Analysis)

	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

func (s *Server) runDeck(id string, prior JobState, a *model.Analysis) {
	done := make(chan struct{})
	defer close(done)
	go s.Jobs.Animate(id, s.AnimateInterval, done)

	deck, err := s.Studio.GenerateDeck(context.Background(), a, func(i, total int) {
		s.Jobs.SetCap(id, 10+float64(i+1)/float64(total)*85)
	})
	if err != nil {
		log.Printf("deck generation for %s failed: %v", a.ChannelURL, err)
		s.Jobs.Update(id, func(j *Job) {
			j.State = prior
			j.Progress = 100
			j.Error = failureMessage("deck generation", err)
		})
		return
	}

	s.Jobs.Update(id, func(j *Job) {
		j.State = StateComplete
		j.Progress = 100
		j.cap = 100
		j.Deck = deck
	})
}

func (s *Server) GetDeck(c *gin.Context) {
	job, ok := s.Jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown analysis"})
		return
	}
	if job.Deck == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no deck generated yet"})
		return
	}

	c.JSON(http.StatusOK, job.Deck)
}

func (s *Server) ExportAnalysis(c *gin.Context) {
	job, ok := s.Jobs.Get(c.Param("id"))
	if !ok || job.Analysis == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis to export"})
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, job.Analysis); err != nil {
		log.Printf("export of %s failed: %v", job.ChannelURL, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="studio.toml"`)
	c.Data(http.StatusOK, "application/toml", buf.Bytes())
}

// ImportStudioFile creates a ready job from a previously exported studio
// file, either as a multipart "file" field or as the raw request body.
func (s *Server) ImportStudioFile(c *gin.Context) {
	reader := c.Request.Body
	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		reader = file
	}

	a, err := export.Read(reader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid studio file: %v", err)})
		return
	}

	job := s.Jobs.NewJob(a.ChannelURL)
	s.Jobs.Update(job.ID, func(j *Job) {
		j.State = StateReady
		j.Progress = 100
		j.cap = 100
		j.Analysis = a
	})

	c.JSON(http.StatusCreated, gin.H{"id": job.ID})
}
