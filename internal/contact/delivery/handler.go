package delivery

import (
	"net/http"

	authdelivery "kithbook-backend/internal/auth/delivery"
	contactdto "kithbook-backend/internal/contact/dto"
	"kithbook-backend/internal/contact/usecase"
	"kithbook-backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	contactUsecase usecase.ContactUsecase
	graphUsecase   usecase.GraphUsecase
}

func NewContactHandler(contactUsecase usecase.ContactUsecase, graphUsecase usecase.GraphUsecase) *ContactHandler {
	return &ContactHandler{
		contactUsecase: contactUsecase,
		graphUsecase:   graphUsecase,
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
}

func userID(c *gin.Context) (string, bool) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not authenticated"})
		return "", false
	}
	return user.ID, true
}

func (h *ContactHandler) ListContacts(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	contacts, err := h.contactUsecase.ListContacts(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contactdto.ContactsResponse{Success: true, Contacts: contacts})
}

func (h *ContactHandler) SearchContacts(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	contacts, err := h.contactUsecase.SearchContacts(c.Request.Context(), uid, c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contactdto.ContactsResponse{Success: true, Contacts: contacts})
}

func (h *ContactHandler) UpdateContact(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req contactdto.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request data"})
		return
	}

	contact, err := h.contactUsecase.UpdateContact(c.Request.Context(), uid, c.Param("id"), req.Name, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contactdto.ContactResponse{Success: true, Contact: contact})
}

func (h *ContactHandler) ArchiveContact(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	contact, err := h.contactUsecase.ArchiveContact(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contactdto.ContactResponse{Success: true, Contact: contact})
}

func (h *ContactHandler) UnarchiveContact(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	contact, err := h.contactUsecase.UnarchiveContact(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contactdto.ContactResponse{Success: true, Contact: contact})
}

func (h *ContactHandler) GetTimeline(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	timeline, err := h.contactUsecase.GetContactTimelineByID(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contactdto.TimelineResponse{Success: true, Timeline: timeline})
}

func (h *ContactHandler) RecalculateCounts(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	if err := h.contactUsecase.RecalculateAllInteractionCounts(c.Request.Context(), uid); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contactdto.MessageResponse{Success: true, Message: "Interaction counts recalculated successfully"})
}

func (h *ContactHandler) GetNetwork(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	graph, err := h.graphUsecase.GetNetworkGraphData(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contactdto.NetworkResponse{Success: true, Data: graph})
}
