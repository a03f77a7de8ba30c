package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/OpenMoove/partnerapi"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	products := make([]partnerapi.Product, len(s.products))
	copy(products, s.products)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, pageOf(r, products))
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req partnerapi.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON body."})
		return
	}

	if err := req.Validate(); err != nil {
		writeValidationError(w, err)
		return
	}

	s.mu.Lock()
	if !s.productCodeExists(req.ProductCode) {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"product_code": {"Unknown product code."},
		})
		return
	}

	now := time.Now().UTC()
	propertyID := s.allocID()
	clientID := s.allocID()

	prop := &partnerapi.Property{
		ID:              propertyID,
		Reference:       fmt.Sprintf("MV-%06d", propertyID),
		Address:         req.Address,
		TransactionType: req.TransactionType,
		Status:          "onboarding",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.properties[propertyID] = prop
	s.milestones[propertyID] = defaultMilestones(propertyID, now)

	rec := partnerapi.ClientRecord{
		ID:         clientID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		PropertyID: propertyID,
		CreatedAt:  now,
	}
	s.clients[clientID] = rec
	s.mu.Unlock()

	s.emitClientCreated(rec)
	s.emitPropertyCreated(prop)

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	properties := make([]partnerapi.Property, 0, len(s.properties))
	for _, p := range s.properties {
		properties = append(properties, *p)
	}
	s.mu.Unlock()

	sort.Slice(properties, func(i, j int) bool { return properties[i].ID < properties[j].ID })
	writeJSON(w, http.StatusOK, pageOf(r, properties))
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	prop, ok := s.lookupProperty(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

func (s *Server) handleListMilestones(w http.ResponseWriter, r *http.Request) {
	prop, ok := s.lookupProperty(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	milestones := make([]partnerapi.Milestone, len(s.milestones[prop.ID]))
	copy(milestones, s.milestones[prop.ID])
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, pageOf(r, milestones))
}

func (s *Server) handleListChat(w http.ResponseWriter, r *http.Request) {
	prop, ok := s.lookupProperty(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	messages := make([]partnerapi.ChatMessage, len(s.chats[prop.ID]))
	copy(messages, s.chats[prop.ID])
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, pageOf(r, messages))
}

// handleSendChat accepts and echoes a message, like the vendor's mocked chat.
func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request) {
	prop, ok := s.lookupProperty(w, r)
	if !ok {
		return
	}

	var req partnerapi.ChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON body."})
		return
	}
	if req.Body == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"body": {"This field is required."},
		})
		return
	}

	s.mu.Lock()
	msg := partnerapi.ChatMessage{
		ID:         s.allocID(),
		PropertyID: prop.ID,
		Sender:     "partner",
		Body:       req.Body,
		CreatedAt:  time.Now().UTC(),
	}
	s.chats[prop.ID] = append(s.chats[prop.ID], msg)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) lookupProperty(w http.ResponseWriter, r *http.Request) (*partnerapi.Property, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return nil, false
	}

	s.mu.Lock()
	prop, ok := s.properties[id]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return nil, false
	}
	return prop, true
}

func (s *Server) productCodeExists(code string) bool {
	for _, p := range s.products {
		if p.Code == code {
			return true
		}
	}
	return false
}

func (s *Server) allocID() int64 {
	s.nextID++
	return s.nextID
}

// writeValidationError renders a *APIError as the documented envelope:
// field messages keyed by name plus non_field_errors.
func writeValidationError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*partnerapi.APIError)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	envelope := make(map[string]any, len(apiErr.FieldErrors)+1)
	for field, msgs := range apiErr.FieldErrors {
		envelope[field] = msgs
	}
	if len(apiErr.NonFieldErrors) > 0 {
		envelope["non_field_errors"] = apiErr.NonFieldErrors
	}
	if apiErr.Detail != "" {
		envelope["detail"] = apiErr.Detail
	}
	writeJSON(w, http.StatusBadRequest, envelope)
}

// pageOf slices items into the offset pagination envelope, with absolute
// next/previous links rebuilt from the request URL.
func pageOf[T any](r *http.Request, items []T) partnerapi.Page[T] {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	size := defaultPageSize
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	count := len(items)
	start := (page - 1) * size
	if start > count {
		start = count
	}
	end := start + size
	if end > count {
		end = count
	}

	result := partnerapi.Page[T]{
		Count:   count,
		Results: items[start:end],
	}
	if result.Results == nil {
		result.Results = []T{}
	}

	if end < count {
		u := pageURL(r, page+1, size)
		result.Next = &u
	}
	if page > 1 {
		u := pageURL(r, page-1, size)
		result.Previous = &u
	}
	return result
}

func pageURL(r *http.Request, page, size int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(size))
	return fmt.Sprintf("%s://%s%s?%s", scheme, r.Host, r.URL.Path, q.Encode())
}
