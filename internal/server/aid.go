package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"campaid/internal/family"
	"campaid/pkg/types"
)

func (s *Service) handleGetDelegates(w http.ResponseWriter, r *http.Request) {
	camp, err := campID(r)
	if err == nil {
		err = s.requireOnline("list delegates")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	delegates, err := s.repos.Delegates.Delegates(r.Context(), camp)
	if err != nil {
		s.writeError(w, r, remote("list delegates", err))
		return
	}

	s.writeJSON(w, http.StatusOK, delegates)
}

func (s *Service) handleGetParcels(w http.ResponseWriter, r *http.Request) {
	camp, err := campID(r)
	if err == nil {
		err = s.requireOnline("list parcels")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	parcels, err := s.repos.Parcels.Parcels(r.Context(), camp)
	if err != nil {
		s.writeError(w, r, remote("list parcels", err))
		return
	}

	s.writeJSON(w, http.StatusOK, parcels)
}

type parcelForm struct {
	Name       string `form:"name" json:"name"`
	ParcelDate string `form:"parcel_date" json:"parcelDate"`
}

func (s *Service) handlePostParcel(w http.ResponseWriter, r *http.Request) {
	camp, err := campID(r)
	if err == nil {
		err = s.requireOnline("create parcel")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var in parcelForm
	if err := s.decodeInput(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		s.writeError(w, r, types.NewValidationError("name", "parcel name is required"))
		return
	}

	date, err := family.ParseDate(in.ParcelDate, time.Now())
	if err != nil {
		s.writeError(w, r, types.NewValidationError("parcel_date", "%s", err))
		return
	}

	parcel := &types.AidParcel{
		CampID:     camp,
		Name:       name,
		ParcelDate: date.String(),
	}
	if err := s.repos.Parcels.CreateParcel(r.Context(), parcel); err != nil {
		s.writeError(w, r, remote("create parcel", err))
		return
	}

	s.writeJSON(w, http.StatusCreated, parcel)
}

// parcelInCamp loads the parcel from the URL and hides parcels of other camps.
func (s *Service) parcelInCamp(r *http.Request) (*types.AidParcel, error) {
	camp, err := campID(r)
	if err != nil {
		return nil, err
	}
	if err := s.requireOnline("load parcel"); err != nil {
		return nil, err
	}

	parcel, err := s.repos.Parcels.Parcel(r.Context(), r.PathValue("parcelID"))
	if err != nil {
		return nil, remote("load parcel", err)
	}
	if parcel.CampID != camp {
		return nil, types.ErrParcelNotFound
	}
	return parcel, nil
}

func (s *Service) handleGetDeliveries(w http.ResponseWriter, r *http.Request) {
	parcel, err := s.parcelInCamp(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	deliveries, err := s.repos.Deliveries.DeliveriesByParcel(r.Context(), parcel.ID)
	if err != nil {
		s.writeError(w, r, remote("list deliveries", err))
		return
	}

	s.writeJSON(w, http.StatusOK, deliveries)
}

type deliveryForm struct {
	FamilyID      string `form:"family_id" json:"familyId"`
	RecipientName string `form:"recipient_name" json:"recipientName"`
	Notes         string `form:"notes" json:"notes"`
}

// handlePostDelivery records that a family received the parcel. Recording
// the same family twice is accepted and changes nothing.
func (s *Service) handlePostDelivery(w http.ResponseWriter, r *http.Request) {
	parcel, err := s.parcelInCamp(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var in deliveryForm
	if err := s.decodeInput(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.FamilyID == "" {
		s.writeError(w, r, types.NewValidationError("family_id", "family is required"))
		return
	}

	fam, err := s.repos.Registry.Family(r.Context(), in.FamilyID)
	if err != nil {
		s.writeError(w, r, remote("load family", err))
		return
	}
	if fam.CampID != parcel.CampID {
		s.writeError(w, r, types.ErrFamilyNotFound)
		return
	}

	delivery := &types.AidDelivery{
		FamilyID:      fam.ID,
		ParcelID:      parcel.ID,
		RecipientName: optional(in.RecipientName),
		Notes:         optional(in.Notes),
	}
	created, err := s.repos.Deliveries.RecordDelivery(r.Context(), delivery)
	if err != nil {
		s.writeError(w, r, remote("record delivery", err))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, map[string]any{
		"recorded": created,
		"delivery": delivery,
	})
}

func (s *Service) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	camp, err := campID(r)
	if err == nil {
		err = s.requireOnline("list notifications")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var limit uint64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, types.NewValidationError("limit", "must be a positive number"))
			return
		}
	}

	notifications, err := s.repos.Notifications.LatestNotifications(r.Context(), camp, limit)
	if err != nil {
		s.writeError(w, r, remote("list notifications", err))
		return
	}

	s.writeJSON(w, http.StatusOK, notifications)
}

type markReadForm struct {
	IDs []string `form:"ids" json:"ids"`
}

func (s *Service) handlePostNotificationsRead(w http.ResponseWriter, r *http.Request) {
	var in markReadForm
	if err := s.decodeInput(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.requireOnline("mark notifications read"); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.repos.Notifications.MarkRead(r.Context(), in.IDs); err != nil {
		s.writeError(w, r, remote("mark notifications read", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
