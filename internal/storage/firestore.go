package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fxawebapp/fxa-front/internal/log"
)

// FirestoreStore persists account snapshots in Google Cloud Firestore.
// Account documents are keyed by uid; the signed-in pointer and the storage
// format version live in a single meta document so they survive restarts.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

var _ Store = (*FirestoreStore)(nil)

const metaDocID = "__meta"

type firestoreMeta struct {
	SignedInUID   string `firestore:"signed_in_uid"`
	FormatVersion int    `firestore:"format_version"`
}

// NewFirestoreStore connects to Firestore and returns a store backed by the
// given collection.
func NewFirestoreStore(ctx context.Context, projectID, collection string) (*FirestoreStore, error) {
	if collection == "" {
		collection = "fxa_accounts"
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	log.LogInfoWithFields("storage", "Firestore store initialized", map[string]any{
		"project":    projectID,
		"collection": collection,
	})

	return &FirestoreStore{client: client, collection: collection}, nil
}

func (s *FirestoreStore) doc(uid string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(uid)
}

func (s *FirestoreStore) GetAccount(ctx context.Context, uid string) (*AccountSnapshot, error) {
	snap, err := s.doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("getting account %s: %w", uid, err)
	}

	var account AccountSnapshot
	if err := snap.DataTo(&account); err != nil {
		return nil, fmt.Errorf("decoding account %s: %w", uid, err)
	}
	return &account, nil
}

func (s *FirestoreStore) SetAccount(ctx context.Context, account *AccountSnapshot) error {
	if _, err := s.doc(account.UID).Set(ctx, account); err != nil {
		return fmt.Errorf("storing account %s: %w", account.UID, err)
	}
	return nil
}

func (s *FirestoreStore) DeleteAccount(ctx context.Context, uid string) error {
	if _, err := s.doc(uid).Delete(ctx); err != nil {
		return fmt.Errorf("deleting account %s: %w", uid, err)
	}

	meta, err := s.getMeta(ctx)
	if err != nil {
		return err
	}
	if meta.SignedInUID == uid {
		meta.SignedInUID = ""
		return s.setMeta(ctx, meta)
	}
	return nil
}

func (s *FirestoreStore) ListAccounts(ctx context.Context) ([]*AccountSnapshot, error) {
	var accounts []*AccountSnapshot

	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating accounts: %w", err)
		}
		if snap.Ref.ID == metaDocID {
			continue
		}

		var account AccountSnapshot
		if err := snap.DataTo(&account); err != nil {
			log.LogWarnWithFields("storage", "Skipping undecodable account document", map[string]any{
				"doc":   snap.Ref.ID,
				"error": err.Error(),
			})
			continue
		}
		accounts = append(accounts, &account)
	}
	return accounts, nil
}

func (s *FirestoreStore) SignedInUID(ctx context.Context) (string, error) {
	meta, err := s.getMeta(ctx)
	if err != nil {
		return "", err
	}
	if meta.SignedInUID == "" {
		return "", ErrNotSignedIn
	}
	return meta.SignedInUID, nil
}

func (s *FirestoreStore) SetSignedInUID(ctx context.Context, uid string) error {
	if _, err := s.GetAccount(ctx, uid); err != nil {
		return err
	}

	meta, err := s.getMeta(ctx)
	if err != nil {
		return err
	}
	meta.SignedInUID = uid
	return s.setMeta(ctx, meta)
}

func (s *FirestoreStore) ClearSignedInUID(ctx context.Context) error {
	meta, err := s.getMeta(ctx)
	if err != nil {
		return err
	}
	meta.SignedInUID = ""
	return s.setMeta(ctx, meta)
}

func (s *FirestoreStore) FormatVersion(ctx context.Context) (int, error) {
	meta, err := s.getMeta(ctx)
	if err != nil {
		return 0, err
	}
	return meta.FormatVersion, nil
}

func (s *FirestoreStore) SetFormatVersion(ctx context.Context, version int) error {
	meta, err := s.getMeta(ctx)
	if err != nil {
		return err
	}
	meta.FormatVersion = version
	return s.setMeta(ctx, meta)
}

func (s *FirestoreStore) getMeta(ctx context.Context) (*firestoreMeta, error) {
	snap, err := s.doc(metaDocID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &firestoreMeta{}, nil
		}
		return nil, fmt.Errorf("getting store meta: %w", err)
	}

	var meta firestoreMeta
	if err := snap.DataTo(&meta); err != nil {
		return nil, fmt.Errorf("decoding store meta: %w", err)
	}
	return &meta, nil
}

func (s *FirestoreStore) setMeta(ctx context.Context, meta *firestoreMeta) error {
	if _, err := s.doc(metaDocID).Set(ctx, meta); err != nil {
		return fmt.Errorf("storing store meta: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
