package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"salon-manager/models"
	"salon-manager/utils"
)

const searchMaxResult = 100

type ClientHandler struct {
	Deps
}

func NewClientHandler(d Deps) *ClientHandler {
	return &ClientHandler{Deps: d}
}

type ClientRequest struct {
	FirstName       string  `json:"first_name" form:"first_name"`
	LastName        string  `json:"last_name" form:"last_name"`
	TelephoneNumber *string `json:"telephone_number" form:"telephone_number"`
	Email           *string `json:"email" form:"email"`
}

type ClientResponse struct {
	ID              uint    `json:"id"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	FullName        string  `json:"full_name"`
	TelephoneNumber *string `json:"telephone_number"`
	Email           *string `json:"email"`
}

func (h *ClientHandler) ListClients(c *gin.Context) {
	page, err := h.Repo.ListClients(c.Request.Context(), c.Query("page"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Page[ClientResponse]{
		Items:       toClientResponses(page.Items),
		Number:      page.Number,
		NumPages:    page.NumPages,
		Count:       page.Count,
		HasNext:     page.HasNext,
		HasPrevious: page.HasPrevious,
	})
}

func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req ClientRequest
	if !bind(c, &req) {
		return
	}

	client := &models.Client{
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		TelephoneNumber: blankToNil(req.TelephoneNumber),
		Email:           blankToNil(req.Email),
	}
	if err := h.Repo.CreateClient(c.Request.Context(), client); err != nil {
		respondError(c, err)
		return
	}

	h.Events.PublishAsync(c.Request.Context(), utils.TopicClientEvents, "client_created", client.ID, toClientResponse(client))
	c.JSON(http.StatusCreated, toClientResponse(client))
}

// GetClient serves from the client cache filled by the event consumer when
// possible.
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if cached, hit := h.cachedClient(c.Request.Context(), id); hit {
		c.JSON(http.StatusOK, cached)
		return
	}

	client, err := h.Repo.GetClientByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toClientResponse(client))
}

func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req ClientRequest
	if !bind(c, &req) {
		return
	}

	client, err := h.Repo.GetClientByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	client.FirstName = strings.TrimSpace(req.FirstName)
	client.LastName = strings.TrimSpace(req.LastName)
	client.TelephoneNumber = blankToNil(req.TelephoneNumber)
	client.Email = blankToNil(req.Email)

	if err := h.Repo.UpdateClient(c.Request.Context(), client); err != nil {
		respondError(c, err)
		return
	}

	h.forgetClient(c.Request.Context(), id)
	h.invalidateAgenda(c.Request.Context())
	h.Events.PublishAsync(c.Request.Context(), utils.TopicClientEvents, "client_updated", client.ID, toClientResponse(client))
	c.JSON(http.StatusOK, toClientResponse(client))
}

func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Repo.DeleteClient(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	h.forgetClient(c.Request.Context(), id)
	h.invalidateAgenda(c.Request.Context())
	h.Events.PublishAsync(c.Request.Context(), utils.TopicClientEvents, "client_deleted", id, nil)
	c.Status(http.StatusNoContent)
}

// SearchClients answers from the search index when one is configured and
// from the database otherwise, or when the index fails.
func (h *ClientHandler) SearchClients(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"query": query, "clients": []ClientResponse{}})
		return
	}

	if h.Search != nil {
		clients, err := h.searchIndex(c.Request.Context(), query)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"query": query, "clients": clients})
			return
		}
		h.Log.WithError(err).WithField("query", query).Warn("client index search failed, using database")
	}

	clients, err := h.Repo.SearchClients(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "clients": toClientResponses(clients)})
}

func (h *ClientHandler) searchIndex(ctx context.Context, query string) ([]ClientResponse, error) {
	hits, err := h.Search.Search(ctx, utils.ClientsIndex, utils.ClientSearchQuery(query, searchMaxResult))
	if err != nil {
		return nil, err
	}
	clients := make([]ClientResponse, 0, len(hits))
	for _, hit := range hits {
		var client ClientResponse
		if err := json.Unmarshal(hit, &client); err != nil {
			return nil, fmt.Errorf("failed to decode client document: %w", err)
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func (h *ClientHandler) cachedClient(ctx context.Context, id uint) (ClientResponse, bool) {
	var client ClientResponse
	if h.Cache == nil {
		return client, false
	}
	raw, err := h.Cache.GetFromCache(ctx, clientCacheKey(id))
	if err != nil {
		if !errors.Is(err, utils.ErrCacheMiss) {
			h.Log.WithError(err).WithField("client_id", id).Debug("client cache unavailable")
		}
		return client, false
	}
	if err := json.Unmarshal([]byte(raw), &client); err != nil {
		return client, false
	}
	return client, true
}

func (h *ClientHandler) forgetClient(ctx context.Context, id uint) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.DeleteFromCache(ctx, clientCacheKey(id)); err != nil {
		h.Log.WithFields(logrus.Fields{"client_id": id}).WithError(err).Warn("failed to evict client from cache")
	}
}

func clientCacheKey(id uint) string {
	return fmt.Sprintf("client:%d", id)
}

func toClientResponse(client *models.Client) ClientResponse {
	return ClientResponse{
		ID:              client.ID,
		FirstName:       client.FirstName,
		LastName:        client.LastName,
		FullName:        client.String(),
		TelephoneNumber: client.TelephoneNumber,
		Email:           client.Email,
	}
}

func toClientResponses(clients []models.Client) []ClientResponse {
	out := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		out = append(out, toClientResponse(&clients[i]))
	}
	return out
}
