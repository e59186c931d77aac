package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/avream/cardsnoop/internal/brand"
	"github.com/avream/cardsnoop/internal/logger"
	"github.com/avream/cardsnoop/internal/magstripe"
	"github.com/avream/cardsnoop/internal/model"
	"github.com/avream/cardsnoop/internal/securestore"
)

// Tracks a reader can physically produce.
const maxTrackNumber = 3

// sessionVault is the part of the vault the card service needs: resolving a
// session to its secure storage.
type sessionVault interface {
	Storage(sessionID uuid.UUID) (*securestore.Storage, error)
}

// Classification is the outcome of decoding and brand testing a card
// without persisting it.
type Classification struct {
	Result brand.TestResult `json:"result"`
	Tracks map[int]string   `json:"tracks"`
}

type CardService struct {
	cardStore model.CardStore
	archive   model.Storage
	vault     sessionVault
	detector  *brand.Detector
	logger    *logger.Logger
}

func NewCardService(
	cardStore model.CardStore,
	archive model.Storage,
	vault sessionVault,
	detector *brand.Detector,
	logger *logger.Logger,
) *CardService {
	return &CardService{
		cardStore: cardStore,
		archive:   archive,
		vault:     vault,
		detector:  detector,
		logger:    logger,
	}
}

// Ingest decodes a raw card read, classifies it, archives the raw dumps and
// persists the encrypted record. The session's key encrypts every sensitive
// field before anything touches the database.
func (s *CardService) Ingest(ctx context.Context, sessionID uuid.UUID, params model.IngestCardParams) (model.StoredCard, error) {
	storage, err := s.vault.Storage(sessionID)
	if err != nil {
		return model.StoredCard{}, err
	}

	if len(params.Tracks) == 0 {
		return model.StoredCard{}, fmt.Errorf("no track data provided")
	}

	card := buildCard(params.Tracks)
	result := s.detector.RunTests(card)

	record := buildRecord(card, result)

	panHash := ""
	if record.Number != "" {
		panHash, err = securestore.HashCardNumber(record.Number)
		if err != nil {
			return model.StoredCard{}, fmt.Errorf("failed to hash card number: %w", err)
		}

		existing, err := s.cardStore.GetByPANHash(ctx, panHash)
		if err != nil {
			return model.StoredCard{}, fmt.Errorf("failed to check for duplicates: %w", err)
		}
		if len(existing) > 0 {
			s.logger.Warn("card with this number already stored", "count", len(existing))
		}
	}

	encrypted, err := storage.EncryptCard(record)
	if err != nil {
		return model.StoredCard{}, fmt.Errorf("failed to encrypt card record: %w", err)
	}

	payload, err := json.Marshal(encrypted)
	if err != nil {
		return model.StoredCard{}, fmt.Errorf("failed to marshal encrypted record: %w", err)
	}

	id := uuid.New()
	dumpKey := generateDumpKey(id)

	for number, data := range params.Tracks {
		key := trackDumpKey(dumpKey, number)
		if err := s.archive.Upload(ctx, key, bytes.NewReader(data)); err != nil {
			s.deleteDumps(ctx, dumpKey)
			return model.StoredCard{}, fmt.Errorf("failed to archive track dump: %w", err)
		}
	}

	saved, err := s.cardStore.Create(ctx, model.StoredCard{
		ID:      id,
		Label:   params.Label,
		Brand:   result.CardType,
		PANHash: panHash,
		DumpKey: dumpKey,
		Payload: payload,
	})
	if err != nil {
		s.deleteDumps(ctx, dumpKey)
		return model.StoredCard{}, fmt.Errorf("failed to create card: %w", err)
	}

	return saved, nil
}

// Classify decodes and brand-tests a raw read without storing anything.
func (s *CardService) Classify(ctx context.Context, tracks map[int][]byte) (Classification, error) {
	if len(tracks) == 0 {
		return Classification{}, fmt.Errorf("no track data provided")
	}

	card := buildCard(tracks)
	result := s.detector.RunTests(card)

	decoded := make(map[int]string, len(tracks))
	for number := 1; number <= maxTrackNumber; number++ {
		if track := card.Track(number); track != nil {
			decoded[number] = track.Chars()
		}
	}

	return Classification{
		Result: result,
		Tracks: decoded,
	}, nil
}

func (s *CardService) List(ctx context.Context) ([]model.StoredCard, error) {
	cards, err := s.cardStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	return cards, nil
}

func (s *CardService) Get(ctx context.Context, id uuid.UUID) (model.StoredCard, error) {
	card, err := s.cardStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.StoredCard{}, model.ErrNotFound
		}
		return model.StoredCard{}, fmt.Errorf("failed to get card: %w", err)
	}

	return card, nil
}

// Reveal decrypts a stored card's sensitive fields using the session key.
func (s *CardService) Reveal(ctx context.Context, sessionID uuid.UUID, id uuid.UUID) (model.CardRecord, error) {
	storage, err := s.vault.Storage(sessionID)
	if err != nil {
		return model.CardRecord{}, err
	}

	card, err := s.Get(ctx, id)
	if err != nil {
		return model.CardRecord{}, err
	}

	var encrypted securestore.EncryptedRecord
	if err := json.Unmarshal(card.Payload, &encrypted); err != nil {
		return model.CardRecord{}, fmt.Errorf("failed to unmarshal encrypted record: %w", err)
	}

	record, err := storage.DecryptCard(encrypted)
	if err != nil {
		return model.CardRecord{}, err
	}

	return record, nil
}

// Delete soft deletes a card and removes its archived dumps. Dump removal
// is best effort: a dangling object is preferable to a card that cannot be
// deleted.
func (s *CardService) Delete(ctx context.Context, id uuid.UUID) error {
	card, err := s.cardStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		return fmt.Errorf("failed to get card: %w", err)
	}

	if card.DumpKey != "" {
		s.deleteDumps(ctx, card.DumpKey)
	}

	if err := s.cardStore.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		return fmt.Errorf("failed to soft delete card: %w", err)
	}

	return nil
}

func (s *CardService) deleteDumps(ctx context.Context, dumpKey string) {
	for number := 1; number <= maxTrackNumber; number++ {
		key := trackDumpKey(dumpKey, number)
		exists, err := s.archive.Exists(ctx, key)
		if err != nil {
			s.logger.Error("failed to check dump existence", "key", key, "error", err)
			continue
		}
		if !exists {
			continue
		}
		if err := s.archive.Delete(ctx, key); err != nil {
			s.logger.Error("failed to delete dump", "key", key, "error", err)
		}
	}
}

func generateDumpKey(cardID uuid.UUID) string {
	return fmt.Sprintf("card-%s", cardID)
}

func trackDumpKey(dumpKey string, trackNumber int) string {
	return fmt.Sprintf("%s/track-%d.bin", dumpKey, trackNumber)
}

// buildCard assembles a card from raw dumps and decodes every track.
// Tracks the reader did not produce are recorded as known missing.
func buildCard(tracks map[int][]byte) *magstripe.Card {
	card := magstripe.NewCard()
	for number, data := range tracks {
		card.AddTrack(magstripe.NewTrack(data, number))
	}
	for number := 1; number <= maxTrackNumber; number++ {
		if _, ok := tracks[number]; !ok {
			card.AddMissingTrack(number)
		}
	}
	card.DecodeTracks()
	return card
}

// buildRecord maps a decoded card and its brand test result onto the
// plaintext record. The brand tests already parse PAN and expiration from
// track 2; the cardholder name only exists on track 1.
func buildRecord(card *magstripe.Card, result brand.TestResult) model.CardRecord {
	record := model.CardRecord{
		Number:     result.Tag("Card Number"),
		Expiration: result.Tag("Expiration"),
	}

	var all []string
	for number := 1; number <= maxTrackNumber; number++ {
		track := card.Track(number)
		if track == nil || track.Chars() == "" {
			continue
		}
		all = append(all, track.Chars())

		switch number {
		case 1:
			record.Track1 = track.Chars()
			if record.HolderName == "" && track.NumFields() > 1 {
				record.HolderName = strings.TrimSpace(track.Field(1))
			}
		case 2:
			record.Track2 = track.Chars()
			if record.Number == "" && track.NumFields() > 0 {
				record.Number = track.Field(0)
			}
			if record.Expiration == "" && track.NumFields() > 1 {
				record.Expiration = track.Field(1)
			}
		}
	}
	record.Tracks = strings.Join(all, "\n")

	if code := result.Tag("Service Code"); code != "" {
		record.SetField("service_code", code)
	}

	return record
}
