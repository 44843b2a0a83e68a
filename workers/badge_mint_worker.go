// workers/badge_mint_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/creativetemmy/pair2pass-sub000/models"

	"gorm.io/gorm"
)

// BadgeMintClient submits earned badges to the external NFT minting service.
type BadgeMintClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewBadgeMintClient(db *gorm.DB) *BadgeMintClient {
	baseURL := os.Getenv("MINT_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("MINT_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("PAIR2PASS_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("PAIR2PASS_SERVICE_TOKEN environment variable is required for badge minting")
	}

	return &BadgeMintClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type mintRequest struct {
	WalletAddress string `json:"wallet_address"`
	BadgeCode     string `json:"badge_code"`
	BadgeName     string `json:"badge_name"`
	Rarity        string `json:"rarity"`
}

type mintResponse struct {
	TxHash string `json:"tx_hash"`
}

// Mint submits one badge and returns the transaction hash.
func (c *BadgeMintClient) Mint(ctx context.Context, walletAddress string, badge models.BadgeType) (string, error) {
	payload, _ := json.Marshal(mintRequest{
		WalletAddress: walletAddress,
		BadgeCode:     badge.Code,
		BadgeName:     badge.Name,
		Rarity:        badge.Rarity,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/v1/badges/mint", c.BaseURL), bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create mint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call mint service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("mint service returned status %d: %s", resp.StatusCode, string(body))
	}

	var out mintResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode mint response: %w", err)
	}
	return out.TxHash, nil
}

// PollBadgeMints drains the pending mint queue. Profiles without a linked
// wallet are marked skipped; transient mint failures stay pending and are
// retried next tick.
func PollBadgeMints(ctx context.Context, client *BadgeMintClient, pollInterval time.Duration) {
	log.Println("Starting badge mint polling…")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Badge mint polling stopped.")
			return
		case <-ticker.C:
			var pending []models.UserBadge
			if err := client.DB.Where("mint_status = ?", models.MintPending).
				Order("awarded_at ASC").
				Limit(20).
				Find(&pending).Error; err != nil {
				log.Printf("❌ Error fetching pending badge mints: %v", err)
				continue
			}
			if len(pending) == 0 {
				continue
			}

			log.Printf("📥 %d badge(s) waiting to mint.", len(pending))

			for _, ub := range pending {
				var prof models.Profile
				if err := client.DB.Where("external_user_id = ?", ub.ExternalUserID).First(&prof).Error; err != nil {
					log.Printf("⚠️ No profile for badge %s owner %s: %v", ub.ID, ub.ExternalUserID, err)
					continue
				}
				if prof.WalletAddress == nil || *prof.WalletAddress == "" {
					client.DB.Model(&models.UserBadge{}).
						Where("id = ?", ub.ID).
						Update("mint_status", models.MintSkipped)
					continue
				}

				var badge models.BadgeType
				if err := client.DB.First(&badge, "id = ?", ub.BadgeTypeID).Error; err != nil {
					log.Printf("⚠️ Missing badge type %s for %s: %v", ub.BadgeTypeID, ub.ID, err)
					continue
				}

				txHash, err := client.Mint(ctx, *prof.WalletAddress, badge)
				if err != nil {
					log.Printf("❌ Mint failed for badge %s (%s): %v", badge.Code, ub.ExternalUserID, err)
					continue // stays pending, retried next tick
				}

				now := time.Now()
				if err := client.DB.Model(&models.UserBadge{}).
					Where("id = ?", ub.ID).
					Updates(map[string]interface{}{
						"mint_status":  models.MintMinted,
						"mint_tx_hash": txHash,
						"minted_at":    now,
					}).Error; err != nil {
					log.Printf("❌ Failed to record mint for badge %s: %v", ub.ID, err)
					continue
				}
				log.Printf("✅ Minted badge %s for %s (tx=%s)", badge.Code, ub.ExternalUserID, txHash)
			}
		}
	}
}
