package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZentaChain/wasocket/pkg/binary"
	"github.com/ZentaChain/wasocket/pkg/crypto"
)

// SessionResponse describes the current session.
type SessionResponse struct {
	Connected          bool       `json:"connected"`
	ServerKey          string     `json:"serverKey,omitempty"`
	LeafSerial         uint32     `json:"leafSerial,omitempty"`
	IntermediateSerial uint32     `json:"intermediateSerial,omitempty"`
	NotAfter           *time.Time `json:"notAfter,omitempty"`
}

// SendNodeRequest is a node to send through the current session. Content,
// if set, is sent as raw bytes.
type SendNodeRequest struct {
	Tag     string            `json:"tag" binding:"required"`
	Attrs   map[string]string `json:"attrs"`
	Content string            `json:"content"`
}

// SendNodeResponse echoes the node that was sent.
type SendNodeResponse struct {
	Success bool   `json:"success"`
	XML     string `json:"xml"`
}

// ServerKeyInfo is one accepted server key.
type ServerKeyInfo struct {
	Fingerprint string    `json:"fingerprint"`
	LeafSerial  uint32    `json:"leafSerial"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.started).String(),
		"connected": s.sessions.Current() != nil,
	})
}

// handleSession handles GET /api/v1/session
func (s *Server) handleSession(c *gin.Context) {
	session := s.sessions.Current()
	if session == nil {
		c.JSON(http.StatusOK, SessionResponse{Connected: false})
		return
	}
	resp := SessionResponse{Connected: true}
	if cert := session.ServerCertificate(); cert != nil {
		resp.ServerKey = crypto.Fingerprint(cert.Leaf.Key)
		resp.LeafSerial = cert.Leaf.Serial
		resp.IntermediateSerial = cert.Intermediate.Serial
		if cert.Leaf.NotAfter != 0 {
			notAfter := time.Unix(int64(cert.Leaf.NotAfter), 0).UTC()
			resp.NotAfter = &notAfter
		}
	}
	c.JSON(http.StatusOK, resp)
}

// handleSendNode handles POST /api/v1/session/nodes
func (s *Server) handleSendNode(c *gin.Context) {
	var req SendNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	session := s.sessions.Current()
	if session == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Not connected"})
		return
	}

	node := req.node()
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.SendTimeout)
	defer cancel()
	if err := session.SendNode(ctx, node); err != nil {
		s.log.Warn().Err(err).Str("tag", node.Tag).Msg("Failed to send node")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Send failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SendNodeResponse{Success: true, XML: node.XMLString()})
}

// node builds the node with attributes in key order so requests encode
// deterministically.
func (req SendNodeRequest) node() *binary.Node {
	node := &binary.Node{Tag: req.Tag}
	keys := make([]string, 0, len(req.Attrs))
	for key := range req.Attrs {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		node.Attrs = append(node.Attrs, binary.Attr{Key: key, Value: req.Attrs[key]})
	}
	if req.Content != "" {
		node.Content = []byte(req.Content)
	}
	return node
}

// handleServerKeys handles GET /api/v1/server-keys
func (s *Server) handleServerKeys(c *gin.Context) {
	if s.keys == nil {
		c.JSON(http.StatusOK, gin.H{"serverKeys": []ServerKeyInfo{}})
		return
	}
	keys, err := s.keys.ServerKeys()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list server keys", Message: err.Error()})
		return
	}
	out := make([]ServerKeyInfo, 0, len(keys))
	for _, key := range keys {
		out = append(out, ServerKeyInfo{
			Fingerprint: key.Fingerprint,
			LeafSerial:  key.LeafSerial,
			FirstSeen:   key.FirstSeen,
			LastSeen:    key.LastSeen,
		})
	}
	c.JSON(http.StatusOK, gin.H{"serverKeys": out})
}
