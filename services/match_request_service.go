package services

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/creativetemmy/pair2pass-sub000/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// DefaultRequestTTL is how long a pending request stays acceptable.
const DefaultRequestTTL = 30 * time.Minute

// ReadyCountdown is the lobby countdown once both partners check in.
const ReadyCountdown = 5 * time.Minute

// liveSessionWindow bounds the duplicate-booking check.
const liveSessionWindow = 24 * time.Hour

var walletAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidWalletAddress reports whether addr is a 0x-prefixed 40-hex-char
// address. Empty is allowed — wallet linking is optional.
func ValidWalletAddress(addr string) bool {
	return addr == "" || walletAddressRe.MatchString(addr)
}

var subjectTitler = cases.Title(language.English)

// NormalizeSubject returns the display name and canonical slug for a
// free-form subject string.
func NormalizeSubject(raw string) (name, slugged string) {
	name = subjectTitler.String(strings.TrimSpace(raw))
	return name, slug.Make(name)
}

// Errors returned by the accept guard chain. Handlers translate these into
// the create-study-session response contract.
var (
	ErrRequestNotPending = errors.New("request is not pending")
	ErrRequestExpired    = errors.New("expired")
	ErrProfileIncomplete = errors.New("both profiles must be complete and email-verified")
	ErrAlreadyInSession  = errors.New("a partner already has an active session")
	ErrAcceptConflict    = errors.New("request was updated by someone else")
	ErrNotYourRequest    = errors.New("request is not addressed to you")
)

// CanAccept applies the stateless part of the accept guard chain.
func CanAccept(req *models.MatchRequest, targetID string, now time.Time) error {
	if req.TargetID != targetID {
		return ErrNotYourRequest
	}
	if req.Status != models.MatchRequestPending {
		return ErrRequestNotPending
	}
	if req.IsExpired(now) {
		return ErrRequestExpired
	}
	return nil
}

type MatchRequestService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Mailer        *EmailClient
}

func NewMatchRequestService(db *gorm.DB, notifications *NotificationService, mailer *EmailClient) *MatchRequestService {
	return &MatchRequestService{DB: db, Notifications: notifications, Mailer: mailer}
}

func (s *MatchRequestService) profileByExternalID(externalUserID string) (*models.Profile, error) {
	var prof models.Profile
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prof).Error; err != nil {
		return nil, err
	}
	return &prof, nil
}

// hasLiveSession reports whether the user has a waiting/active/ongoing
// session created within the duplicate-booking window.
func (s *MatchRequestService) hasLiveSession(externalUserID string, now time.Time) (bool, error) {
	var count int64
	err := s.DB.Model(&models.StudySession{}).
		Where("(partner_1_id = ? OR partner_2_id = ?)", externalUserID, externalUserID).
		Where("status IN ?", models.LiveSessionStatuses).
		Where("created_at >= ?", now.Add(-liveSessionWindow)).
		Count(&count).Error
	return count > 0, err
}

// --- Handlers ---

// CreateMatchRequest inserts a pending request and notifies the target.
func (s *MatchRequestService) CreateMatchRequest(c *fiber.Ctx) error {
	requesterID := c.Locals("user_id").(string)

	var req struct {
		TargetID         string `json:"target_id"`
		Subject          string `json:"subject"`
		Goal             string `json:"goal"`
		DurationMinutes  int    `json:"duration_minutes"`
		ExpiresInMinutes int    `json:"expires_in_minutes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.TargetID == "" || req.Subject == "" || req.DurationMinutes <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "target_id, subject and duration_minutes are required"})
	}
	if req.TargetID == requesterID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot request a session with yourself"})
	}

	ttl := DefaultRequestTTL
	if req.ExpiresInMinutes > 0 {
		ttl = time.Duration(req.ExpiresInMinutes) * time.Minute
	}

	subjectName, subjectSlug := NormalizeSubject(req.Subject)

	request := models.MatchRequest{
		ID:              uuid.NewString(),
		RequesterID:     requesterID,
		TargetID:        req.TargetID,
		Subject:         subjectName,
		SubjectSlug:     subjectSlug,
		Goal:            req.Goal,
		DurationMinutes: req.DurationMinutes,
		Status:          models.MatchRequestPending,
		ExpiresAt:       time.Now().Add(ttl),
	}
	if err := s.DB.Create(&request).Error; err != nil {
		log.Printf("DB Error creating match request: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create match request"})
	}

	requester, _ := s.profileByExternalID(requesterID)
	requesterName := requesterID
	if requester != nil {
		requesterName = requester.Username
	}

	s.Notifications.Notify(req.TargetID, models.NotifMatchRequest,
		"New study partner request",
		fmt.Sprintf("%s wants to study %s with you for %d minutes", requesterName, subjectName, req.DurationMinutes),
		map[string]any{"match_request_id": request.ID, "subject": subjectName})

	if target, err := s.profileByExternalID(req.TargetID); err == nil {
		s.Mailer.SendAsync(target, models.NotifMatchRequest, map[string]string{
			"requester": requesterName,
			"subject":   subjectName,
			"duration":  fmt.Sprint(req.DurationMinutes),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(request)
}

// AcceptMatchRequest is the server-validated accept path (the
// create-study-session contract). It re-validates the request, takes the
// pending→accepted transition with an optimistic lock, creates the session,
// and rolls the request back to pending if the session insert fails.
func (s *MatchRequestService) AcceptMatchRequest(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	requestID := c.Params("id")

	var body struct {
		WalletAddress string `json:"wallet_address"`
	}
	// body is optional
	_ = c.BodyParser(&body)

	if _, err := uuid.Parse(requestID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid match request id"})
	}
	if !ValidWalletAddress(body.WalletAddress) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid wallet address"})
	}

	var request models.MatchRequest
	if err := s.DB.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "match request not found"})
		}
		log.Printf("DB Error fetching match request %s: %v", requestID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "database error"})
	}

	now := time.Now()
	if err := CanAccept(&request, userID, now); err != nil {
		if errors.Is(err, ErrRequestExpired) {
			// Check-on-read expiry guard: flip to expired and tell both sides.
			s.expireRequest(&request)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "expired"})
		}
		status := fiber.StatusBadRequest
		if errors.Is(err, ErrNotYourRequest) {
			status = fiber.StatusForbidden
		}
		return c.Status(status).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	requester, err := s.profileByExternalID(request.RequesterID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "requester profile not found"})
	}
	target, err := s.profileByExternalID(request.TargetID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "target profile not found"})
	}
	if !requester.ProfileComplete || !requester.EmailVerified || !target.ProfileComplete || !target.EmailVerified {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": ErrProfileIncomplete.Error()})
	}

	for _, party := range []string{request.RequesterID, request.TargetID} {
		busy, err := s.hasLiveSession(party, now)
		if err != nil {
			log.Printf("DB Error checking live sessions for %s: %v", party, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "database error"})
		}
		if busy {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": ErrAlreadyInSession.Error()})
		}
	}

	if body.WalletAddress != "" {
		s.DB.Model(&models.Profile{}).
			Where("external_user_id = ?", userID).
			Update("wallet_address", body.WalletAddress)
	}

	// Optimistic lock: only one accept wins the pending→accepted transition.
	result := s.DB.Model(&models.MatchRequest{}).
		Where("id = ? AND status = ?", request.ID, models.MatchRequestPending).
		Update("status", models.MatchRequestAccepted)
	if result.Error != nil {
		log.Printf("DB Error accepting match request %s: %v", request.ID, result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "database error"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": ErrAcceptConflict.Error()})
	}

	session := models.StudySession{
		ID:              uuid.NewString(),
		MatchRequestID:  &request.ID,
		Partner1ID:      request.RequesterID,
		Partner2ID:      request.TargetID,
		Subject:         request.Subject,
		SubjectSlug:     request.SubjectSlug,
		Goal:            request.Goal,
		DurationMinutes: request.DurationMinutes,
		Status:          models.SessionWaiting,
	}
	if err := s.DB.Create(&session).Error; err != nil {
		// Compensation: restore the request so another accept can retry.
		if rbErr := s.DB.Model(&models.MatchRequest{}).
			Where("id = ? AND status = ?", request.ID, models.MatchRequestAccepted).
			Update("status", models.MatchRequestPending).Error; rbErr != nil {
			log.Printf("❌ Rollback of match request %s failed: %v", request.ID, rbErr)
		}
		log.Printf("DB Error creating study session for request %s: %v", request.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "failed to create study session"})
	}

	s.Notifications.Notify(request.RequesterID, models.NotifMatchFound,
		"It's a match!",
		fmt.Sprintf("%s accepted your %s session request", target.Username, request.Subject),
		map[string]any{"session_id": session.ID})
	s.Notifications.Notify(request.TargetID, models.NotifMatchAccepted,
		"Session lobby open",
		fmt.Sprintf("Your %s session with %s is ready in the lobby", request.Subject, requester.Username),
		map[string]any{"session_id": session.ID})

	s.Mailer.SendAsync(requester, models.NotifMatchFound, map[string]string{
		"partner": target.Username,
		"subject": request.Subject,
	})
	s.Mailer.SendAsync(target, models.NotifMatchAccepted, map[string]string{
		"partner": requester.Username,
	})

	return c.JSON(fiber.Map{"success": true, "session_id": session.ID})
}

// RejectMatchRequest takes the pending→rejected transition.
func (s *MatchRequestService) RejectMatchRequest(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	requestID := c.Params("id")

	if _, err := uuid.Parse(requestID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid match request ID"})
	}

	var request models.MatchRequest
	if err := s.DB.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Match request not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if request.TargetID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Request is not addressed to you"})
	}

	result := s.DB.Model(&models.MatchRequest{}).
		Where("id = ? AND status = ?", request.ID, models.MatchRequestPending).
		Update("status", models.MatchRequestRejected)
	if result.Error != nil {
		log.Printf("DB Error rejecting match request %s: %v", request.ID, result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to reject request"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Request is no longer pending"})
	}

	target, _ := s.profileByExternalID(userID)
	targetName := userID
	if target != nil {
		targetName = target.Username
	}
	s.Notifications.Notify(request.RequesterID, models.NotifMatchRejected,
		"Request declined",
		fmt.Sprintf("%s can't make your %s session", targetName, request.Subject),
		map[string]any{"match_request_id": request.ID})

	if requester, err := s.profileByExternalID(request.RequesterID); err == nil {
		s.Mailer.SendAsync(requester, models.NotifMatchRejected, map[string]string{
			"partner": targetName,
		})
	}

	return c.JSON(fiber.Map{"message": "Request rejected", "match_request_id": request.ID})
}

// ListMatchRequests returns incoming and outgoing requests, decorated with
// remaining seconds so clients don't re-implement the countdown.
func (s *MatchRequestService) ListMatchRequests(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	now := time.Now()

	var incoming, outgoing []models.MatchRequest
	if err := s.DB.Where("target_id = ?", userID).Order("created_at DESC").Limit(100).Find(&incoming).Error; err != nil {
		log.Printf("DB Error fetching incoming requests: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch requests"})
	}
	if err := s.DB.Where("requester_id = ?", userID).Order("created_at DESC").Limit(100).Find(&outgoing).Error; err != nil {
		log.Printf("DB Error fetching outgoing requests: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch requests"})
	}

	return c.JSON(fiber.Map{
		"incoming": decorateRequests(incoming, now),
		"outgoing": decorateRequests(outgoing, now),
	})
}

func decorateRequests(requests []models.MatchRequest, now time.Time) []fiber.Map {
	out := make([]fiber.Map, 0, len(requests))
	for _, r := range requests {
		out = append(out, fiber.Map{
			"request":           r,
			"remaining_seconds": int(r.RemainingTime(now).Seconds()),
			"expired":           r.Status == models.MatchRequestPending && r.IsExpired(now),
		})
	}
	return out
}

// ExpireDueRequests flips every overdue pending request to expired and
// notifies both parties. Called by the lifecycle scheduler so expiry no
// longer depends on a client having the page open.
func (s *MatchRequestService) ExpireDueRequests(now time.Time) (int, error) {
	var due []models.MatchRequest
	if err := s.DB.Where("status = ? AND expires_at <= ?", models.MatchRequestPending, now).
		Find(&due).Error; err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		if s.expireRequest(&due[i]) {
			expired++
		}
	}
	return expired, nil
}

// expireRequest performs the guarded pending→expired transition plus fanout.
// Returns false if someone else already moved the request on.
func (s *MatchRequestService) expireRequest(request *models.MatchRequest) bool {
	result := s.DB.Model(&models.MatchRequest{}).
		Where("id = ? AND status = ?", request.ID, models.MatchRequestPending).
		Update("status", models.MatchRequestExpired)
	if result.Error != nil {
		log.Printf("DB Error expiring match request %s: %v", request.ID, result.Error)
		return false
	}
	if result.RowsAffected == 0 {
		return false
	}

	for _, party := range []string{request.RequesterID, request.TargetID} {
		s.Notifications.Notify(party, models.NotifMatchExpired,
			"Request expired",
			fmt.Sprintf("The %s session request expired without a response", request.Subject),
			map[string]any{"match_request_id": request.ID})
	}
	if requester, err := s.profileByExternalID(request.RequesterID); err == nil {
		s.Mailer.SendAsync(requester, models.NotifMatchExpired, map[string]string{
			"subject": request.Subject,
		})
	}
	return true
}
