package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kmdouglass/kpal/pkg/core"
	"github.com/kmdouglass/kpal/pkg/plugin"
	"github.com/kmdouglass/kpal/pkg/value"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	libs := s.engine.Libraries().List()
	dtos := make([]libraryDTO, len(libs))
	for i, l := range libs {
		dtos[i] = newLibraryDTO(l)
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r, "id")
	if !ok {
		return
	}
	lib, ok := s.engine.Libraries().Get(id)
	if !ok {
		s.respondError(w, r, core.ErrNotFound)
		return
	}
	respondJSON(w, http.StatusOK, newLibraryDTO(lib))
}

func (s *Server) handleListPeripherals(w http.ResponseWriter, r *http.Request) {
	peripherals := s.engine.Peripherals().List()
	dtos := make([]peripheralDTO, len(peripherals))
	for i, p := range peripherals {
		dtos[i] = s.peripheralToDTO(r, p)
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleCreatePeripheral(w http.ResponseWriter, r *http.Request) {
	var req createPeripheralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondErrorMessage(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	preinit := make([]plugin.PreInitValue, 0, len(req.Attributes))
	for _, a := range req.Attributes {
		v, err := a.toPreInitValue()
		if err != nil {
			s.respondErrorMessage(w, r, http.StatusBadRequest, err.Error())
			return
		}
		preinit = append(preinit, v)
	}

	p, err := s.engine.CreatePeripheral(req.Name, req.LibraryID, preinit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, s.peripheralToDTO(r, p))
}

func (s *Server) handleGetPeripheral(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r, "id")
	if !ok {
		return
	}
	p, ok := s.engine.Peripherals().Get(id)
	if !ok {
		s.respondError(w, r, core.ErrNotFound)
		return
	}
	respondJSON(w, http.StatusOK, s.peripheralToDTO(r, p))
}

func (s *Server) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r, "id")
	if !ok {
		return
	}
	p, ok := s.engine.Peripherals().Get(id)
	if !ok {
		s.respondError(w, r, core.ErrNotFound)
		return
	}

	snapshots, err := s.engine.Dispatcher().GetAttributes(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	byID := make(map[uint32]value.Value, len(snapshots))
	for _, snap := range snapshots {
		byID[snap.ID] = snap.Value
	}

	dtos := make([]attributeDTO, 0, len(p.Attributes))
	for _, meta := range p.Attributes {
		v, ok := byID[meta.ID]
		if !ok {
			continue
		}
		dtos = append(dtos, newAttributeDTO(meta, v))
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleGetAttribute(w http.ResponseWriter, r *http.Request) {
	id, aid, ok := s.parsePeripheralAndAttribute(w, r)
	if !ok {
		return
	}
	p, ok := s.engine.Peripherals().Get(id)
	if !ok {
		s.respondError(w, r, core.ErrNotFound)
		return
	}
	meta, ok := p.AttributeByID(aid)
	if !ok {
		s.respondError(w, r, core.ErrNotFound)
		return
	}

	v, err := s.engine.Dispatcher().GetAttribute(r.Context(), id, aid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newAttributeDTO(meta, v))
}

func (s *Server) handleSetAttribute(w http.ResponseWriter, r *http.Request) {
	id, aid, ok := s.parsePeripheralAndAttribute(w, r)
	if !ok {
		return
	}
	p, ok := s.engine.Peripherals().Get(id)
	if !ok {
		s.respondError(w, r, core.ErrNotFound)
		return
	}
	meta, ok := p.AttributeByID(aid)
	if !ok {
		s.respondError(w, r, core.ErrNotFound)
		return
	}

	var req setAttributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondErrorMessage(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	v, err := req.toValue()
	if err != nil {
		s.respondErrorMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	written, err := s.engine.Dispatcher().SetAttribute(r.Context(), id, aid, v)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newAttributeDTO(meta, written))
}

func (s *Server) peripheralToDTO(r *http.Request, p *core.Peripheral) peripheralDTO {
	attrs := make([]attributeDTO, len(p.Attributes))
	snapshots, err := s.engine.Dispatcher().GetAttributes(r.Context(), p.ID)
	byID := make(map[uint32]attributeDTO, len(snapshots))
	if err == nil {
		for _, snap := range snapshots {
			if meta, ok := p.AttributeByID(snap.ID); ok {
				byID[snap.ID] = newAttributeDTO(meta, snap.Value)
			}
		}
	}
	for i, meta := range p.Attributes {
		if dto, ok := byID[meta.ID]; ok {
			attrs[i] = dto
		} else {
			attrs[i] = attributeDTO{ID: meta.ID, Name: meta.Name, Variant: meta.Variant.String(), PreInit: meta.PreInit}
		}
	}
	return peripheralDTO{ID: p.ID, Name: p.Name, LibraryID: p.LibraryID, Attributes: attrs}
}

func (s *Server) parseID(w http.ResponseWriter, r *http.Request, key string) (uint32, bool) {
	raw := mux.Vars(r)[key]
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		s.respondError(w, r, core.ErrNotFound)
		return 0, false
	}
	return uint32(n), true
}

func (s *Server) parsePeripheralAndAttribute(w http.ResponseWriter, r *http.Request) (uint32, uint32, bool) {
	id, ok := s.parseID(w, r, "id")
	if !ok {
		return 0, 0, false
	}
	aid, ok := s.parseID(w, r, "aid")
	if !ok {
		return 0, 0, false
	}
	return id, aid, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError translates a core/plugin error into the {code, message} body
// and status defined by the daemon's error taxonomy, and, for 5xx statuses,
// logs it against the request's correlation ID so an operator can tie a
// response back to the request-scoped log lines requestID's middleware
// emitted.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := core.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.engine.Logger().Error("request failed", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
	respondJSON(w, status, errorResponse{Code: code, Message: message})
}

// respondErrorMessage is for client errors caught before they ever reach
// core.HTTPStatus (malformed JSON, unknown variant names, values that do not
// decode as their variant) — there is no plugin error code to report, so
// code is always 0. Unparseable ids go through respondError as ErrNotFound.
func (s *Server) respondErrorMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.engine.Logger().Debug("request rejected", "request_id", requestIDFromContext(r.Context()), "status", status, "message", message)
	respondJSON(w, status, errorResponse{Code: 0, Message: message})
}
