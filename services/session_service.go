package services

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/creativetemmy/pair2pass-sub000/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// staleLobbyAge is how long a waiting lobby may sit before cleanup cancels it.
const staleLobbyAge = 24 * time.Hour

// PromotionDue reports whether a session's ready countdown has elapsed and
// it should be promoted to active. The actual transition is still taken
// through a conditional update, so racing callers collapse to one winner.
func PromotionDue(s *models.StudySession, now time.Time) bool {
	return s.Status == models.SessionWaiting &&
		s.BothReady() &&
		s.StartsAt != nil &&
		!s.StartsAt.After(now)
}

// ValidMeetingLink accepts absolute http(s) URLs only.
func ValidMeetingLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type SessionService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Mailer        *EmailClient
	Ledger        *LedgerService
}

func NewSessionService(db *gorm.DB, notifications *NotificationService, mailer *EmailClient, ledger *LedgerService) *SessionService {
	return &SessionService{DB: db, Notifications: notifications, Mailer: mailer, Ledger: ledger}
}

// loadParticipantSession fetches the session and checks the caller is one
// of the two partners.
func (s *SessionService) loadParticipantSession(c *fiber.Ctx) (*models.StudySession, error) {
	sessionID := c.Params("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	var session models.StudySession
	if err := s.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
		}
		log.Printf("DB Error fetching session %s: %v", sessionID, err)
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	userID := c.Locals("user_id").(string)
	if !session.HasParticipant(userID) {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not part of this session"})
	}
	return &session, nil
}

// --- Handlers ---

// GetSession returns the current lobby state. This is the polling fallback
// for clients without an SSE connection.
func (s *SessionService) GetSession(c *fiber.Ctx) error {
	session, err := s.loadParticipantSession(c)
	if session == nil {
		return err
	}

	now := time.Now()
	resp := fiber.Map{
		"session":       session,
		"both_ready":    session.BothReady(),
		"promotion_due": PromotionDue(session, now),
	}
	if session.StartsAt != nil && session.Status == models.SessionWaiting {
		remaining := session.StartsAt.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		resp["countdown_seconds"] = int(remaining.Seconds())
	}
	return c.JSON(resp)
}

// ListSessions returns the caller's sessions, newest first.
func (s *SessionService) ListSessions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	query := s.DB.Where("partner_1_id = ? OR partner_2_id = ?", userID, userID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var sessions []models.StudySession
	if err := query.Order("created_at DESC").Limit(100).Find(&sessions).Error; err != nil {
		log.Printf("DB Error fetching sessions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch sessions"})
	}
	return c.JSON(sessions)
}

// SetMeetingLink stores the meeting link while the lobby is still waiting.
func (s *SessionService) SetMeetingLink(c *fiber.Ctx) error {
	session, err := s.loadParticipantSession(c)
	if session == nil {
		return err
	}

	var body struct {
		MeetingLink string `json:"meeting_link"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !ValidMeetingLink(body.MeetingLink) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "meeting_link must be an absolute http(s) URL"})
	}
	if session.Status != models.SessionWaiting {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Meeting link can only be set while waiting"})
	}

	if err := s.DB.Model(session).Update("meeting_link", body.MeetingLink).Error; err != nil {
		log.Printf("DB Error setting meeting link for %s: %v", session.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to set meeting link"})
	}

	return c.JSON(fiber.Map{"message": "Meeting link set", "session_id": session.ID})
}

// MarkReady flips the caller's ready flag. When both flags are true, one
// writer wins the ready_at IS NULL guard and arms the 5-minute countdown;
// every other observer no-ops.
func (s *SessionService) MarkReady(c *fiber.Ctx) error {
	session, err := s.loadParticipantSession(c)
	if session == nil {
		return err
	}
	userID := c.Locals("user_id").(string)

	if session.Status != models.SessionWaiting {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Session is not in the lobby"})
	}
	if session.MeetingLink == nil || *session.MeetingLink == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Set a meeting link before checking in"})
	}

	readyColumn := "partner_1_ready"
	if userID == session.Partner2ID {
		readyColumn = "partner_2_ready"
	}
	if err := s.DB.Model(session).Update(readyColumn, true).Error; err != nil {
		log.Printf("DB Error marking ready on %s: %v", session.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark ready"})
	}

	// Re-read both flags after our write.
	if err := s.DB.First(session, "id = ?", session.ID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if session.BothReady() && session.ReadyAt == nil {
		now := time.Now()
		startsAt := now.Add(ReadyCountdown)
		result := s.DB.Model(&models.StudySession{}).
			Where("id = ? AND ready_at IS NULL", session.ID).
			Updates(map[string]interface{}{"ready_at": now, "starts_at": startsAt})
		if result.Error != nil {
			log.Printf("DB Error arming countdown on %s: %v", session.ID, result.Error)
		} else if result.RowsAffected > 0 {
			session.ReadyAt = &now
			session.StartsAt = &startsAt
			for _, party := range []string{session.Partner1ID, session.Partner2ID} {
				s.Notifications.Notify(party, models.NotifSessionReady,
					"Both partners ready",
					fmt.Sprintf("Your %s session starts in %d minutes", session.Subject, int(ReadyCountdown.Minutes())),
					map[string]any{"session_id": session.ID, "starts_at": startsAt})
				if prof, err := s.profile(party); err == nil {
					s.Mailer.SendAsync(prof, models.NotifSessionReady, map[string]string{
						"subject": session.Subject,
					})
				}
			}
		}
	}

	return c.JSON(fiber.Map{
		"session_id": session.ID,
		"both_ready": session.BothReady(),
		"starts_at":  session.StartsAt,
	})
}

// StartSession promotes waiting→active once the countdown has elapsed. The
// conditional update makes the transition idempotent: whichever of the two
// clients (or the scheduler) gets here first wins, the rest no-op.
func (s *SessionService) StartSession(c *fiber.Ctx) error {
	session, err := s.loadParticipantSession(c)
	if session == nil {
		return err
	}

	now := time.Now()
	if !PromotionDue(session, now) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Session is not ready to start"})
	}

	promoted, err := s.promote(session, now)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to start session"})
	}

	return c.JSON(fiber.Map{
		"session_id": session.ID,
		"status":     models.SessionActive,
		"promoted":   promoted, // false = someone else already started it
	})
}

// rewardColumnFor names the caller's one-shot completion-payout flag.
func rewardColumnFor(s *models.StudySession, userID string) string {
	if userID == s.Partner2ID {
		return "partner_2_rewarded"
	}
	return "partner_1_rewarded"
}

// promote performs the guarded waiting→active transition.
func (s *SessionService) promote(session *models.StudySession, now time.Time) (bool, error) {
	result := s.DB.Model(&models.StudySession{}).
		Where("id = ? AND status = ? AND partner_1_ready = ? AND partner_2_ready = ?",
			session.ID, models.SessionWaiting, true, true).
		Updates(map[string]interface{}{"status": models.SessionActive, "started_at": now})
	if result.Error != nil {
		log.Printf("DB Error promoting session %s: %v", session.ID, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CompleteSession finishes an active session for the caller. Optional
// partner rating and feedback create the caller's review in the same step.
func (s *SessionService) CompleteSession(c *fiber.Ctx) error {
	session, err := s.loadParticipantSession(c)
	if session == nil {
		return err
	}
	userID := c.Locals("user_id").(string)

	var body struct {
		PartnerRating *int   `json:"partner_rating"`
		Feedback      string `json:"feedback"`
	}
	_ = c.BodyParser(&body)
	if body.PartnerRating != nil && (*body.PartnerRating < 1 || *body.PartnerRating > 5) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "partner_rating must be between 1 and 5"})
	}

	now := time.Now()
	result := s.DB.Model(&models.StudySession{}).
		Where("id = ? AND status IN ?", session.ID, []models.StudySessionStatus{models.SessionActive, models.SessionOngoing}).
		Updates(map[string]interface{}{"status": models.SessionCompleted, "completed_at": now})
	if result.Error != nil {
		log.Printf("DB Error completing session %s: %v", session.ID, result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to complete session"})
	}
	alreadyCompleted := result.RowsAffected == 0 && session.Status == models.SessionCompleted
	if result.RowsAffected == 0 && !alreadyCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Session is not active"})
	}

	// One payout per partner: the rewarded flag is claimed through a
	// conditional update, so replaying the request (or racing it) pays
	// nothing. Ledger failures after a claim are logged, never rolled back.
	rewardColumn := rewardColumnFor(session, userID)
	claim := s.DB.Model(&models.StudySession{}).
		Where(fmt.Sprintf("id = ? AND %s = ?", rewardColumn), session.ID, false).
		Update(rewardColumn, true)
	if claim.Error != nil {
		log.Printf("DB Error claiming completion reward on %s: %v", session.ID, claim.Error)
	} else if claim.RowsAffected > 0 {
		if err := s.Ledger.RecordSessionCompletion(userID, session.DurationMinutes, body.PartnerRating); err != nil {
			log.Printf("⚠️ Reward update failed for %s on session %s: %v", userID, session.ID, err)
		}
	}

	if body.PartnerRating != nil {
		review := models.SessionReview{
			ID:         uuid.NewString(),
			SessionID:  session.ID,
			ReviewerID: userID,
			ReviewedID: session.PartnerOf(userID),
			Rating:     *body.PartnerRating,
			Feedback:   body.Feedback,
		}
		if err := s.DB.Create(&review).Error; err != nil {
			// Unique (session, reviewer) index rejects duplicates.
			log.Printf("Review insert skipped for %s on session %s: %v", userID, session.ID, err)
		} else {
			s.applyReview(&review, session)
		}
	}

	if result.RowsAffected > 0 {
		partnerID := session.PartnerOf(userID)
		s.Notifications.Notify(partnerID, models.NotifSessionComplete,
			"Session complete",
			fmt.Sprintf("Your %s session is complete. Don't forget to check in!", session.Subject),
			map[string]any{"session_id": session.ID})
		if prof, err := s.profile(partnerID); err == nil {
			s.Mailer.SendAsync(prof, models.NotifSessionComplete, map[string]string{
				"subject": session.Subject,
			})
		}
	}

	return c.JSON(fiber.Map{"message": "Session completed", "session_id": session.ID})
}

// CancelSession aborts a waiting lobby.
func (s *SessionService) CancelSession(c *fiber.Ctx) error {
	session, err := s.loadParticipantSession(c)
	if session == nil {
		return err
	}
	userID := c.Locals("user_id").(string)

	result := s.DB.Model(&models.StudySession{}).
		Where("id = ? AND status = ?", session.ID, models.SessionWaiting).
		Update("status", models.SessionCancelled)
	if result.Error != nil {
		log.Printf("DB Error cancelling session %s: %v", session.ID, result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to cancel session"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only waiting sessions can be cancelled"})
	}

	partnerID := session.PartnerOf(userID)
	s.Notifications.Notify(partnerID, models.NotifSessionCancelled,
		"Session cancelled",
		fmt.Sprintf("Your %s session was cancelled by your partner", session.Subject),
		map[string]any{"session_id": session.ID})
	if prof, err := s.profile(partnerID); err == nil {
		s.Mailer.SendAsync(prof, models.NotifSessionCancelled, map[string]string{
			"subject": session.Subject,
		})
	}

	return c.JSON(fiber.Map{"message": "Session cancelled", "session_id": session.ID})
}

// SubmitReview records a standalone post-session review (for users who
// skipped the rating at check-in).
func (s *SessionService) SubmitReview(c *fiber.Ctx) error {
	session, err := s.loadParticipantSession(c)
	if session == nil {
		return err
	}
	userID := c.Locals("user_id").(string)

	if session.Status != models.SessionCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only completed sessions can be reviewed"})
	}

	var body struct {
		Rating   int    `json:"rating"`
		Feedback string `json:"feedback"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if body.Rating < 1 || body.Rating > 5 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "rating must be between 1 and 5"})
	}

	review := models.SessionReview{
		ID:         uuid.NewString(),
		SessionID:  session.ID,
		ReviewerID: userID,
		ReviewedID: session.PartnerOf(userID),
		Rating:     body.Rating,
		Feedback:   body.Feedback,
	}
	if err := s.DB.Create(&review).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You already reviewed this session"})
	}

	s.applyReview(&review, session)

	return c.Status(fiber.StatusCreated).JSON(review)
}

// applyReview folds a new review into the reviewed partner's profile and
// pays the reviewer's bonus.
func (s *SessionService) applyReview(review *models.SessionReview, session *models.StudySession) {
	if err := s.Ledger.RecordRatingReceived(review.ReviewedID, review.Rating); err != nil {
		log.Printf("⚠️ Rating update failed for %s: %v", review.ReviewedID, err)
	}
	if _, err := s.Ledger.AwardPoints(review.ReviewerID, AwardReviewSubmitted); err != nil {
		log.Printf("⚠️ Review bonus failed for %s: %v", review.ReviewerID, err)
	}

	reviewerName := review.ReviewerID
	if prof, err := s.profile(review.ReviewerID); err == nil {
		reviewerName = prof.Username
	}
	s.Notifications.Notify(review.ReviewedID, models.NotifReviewReceived,
		"New review",
		fmt.Sprintf("%s rated your %s session %d/5", reviewerName, session.Subject, review.Rating),
		map[string]any{"session_id": session.ID, "rating": review.Rating})
	if prof, err := s.profile(review.ReviewedID); err == nil {
		s.Mailer.SendAsync(prof, models.NotifReviewReceived, map[string]string{
			"reviewer": reviewerName,
			"rating":   fmt.Sprint(review.Rating),
		})
	}
}

// --- Scheduler entry points ---

// PromoteReadySessions starts every session whose countdown elapsed. The
// per-row conditional update keeps this safe to run concurrently with
// client-triggered starts.
func (s *SessionService) PromoteReadySessions(now time.Time) (int, error) {
	var due []models.StudySession
	if err := s.DB.Where("status = ? AND partner_1_ready = ? AND partner_2_ready = ? AND starts_at <= ?",
		models.SessionWaiting, true, true, now).
		Find(&due).Error; err != nil {
		return 0, err
	}

	promoted := 0
	for i := range due {
		ok, err := s.promote(&due[i], now)
		if err != nil || !ok {
			continue
		}
		promoted++
		for _, party := range []string{due[i].Partner1ID, due[i].Partner2ID} {
			s.Notifications.Notify(party, models.NotifSessionReminder,
				"Session started",
				fmt.Sprintf("Your %s session is now active — check in!", due[i].Subject),
				map[string]any{"session_id": due[i].ID})
		}
	}
	return promoted, nil
}

// CancelStaleLobbies cancels waiting sessions that never got going.
func (s *SessionService) CancelStaleLobbies(now time.Time) (int, error) {
	cutoff := now.Add(-staleLobbyAge)

	var stale []models.StudySession
	if err := s.DB.Where("status = ? AND created_at <= ?", models.SessionWaiting, cutoff).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range stale {
		result := s.DB.Model(&models.StudySession{}).
			Where("id = ? AND status = ?", stale[i].ID, models.SessionWaiting).
			Update("status", models.SessionCancelled)
		if result.Error != nil || result.RowsAffected == 0 {
			continue
		}
		cancelled++
		for _, party := range []string{stale[i].Partner1ID, stale[i].Partner2ID} {
			s.Notifications.Notify(party, models.NotifSessionCancelled,
				"Session cancelled",
				fmt.Sprintf("Your %s session lobby expired after %d hours", stale[i].Subject, int(staleLobbyAge.Hours())),
				map[string]any{"session_id": stale[i].ID})
		}
	}
	return cancelled, nil
}

func (s *SessionService) profile(externalUserID string) (*models.Profile, error) {
	var prof models.Profile
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prof).Error; err != nil {
		return nil, err
	}
	return &prof, nil
}
