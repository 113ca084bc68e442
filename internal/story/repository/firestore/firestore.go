// Package firestore stores stories in a Cloud Firestore collection.
package firestore

import (
	"context"
	"fmt"
	"os"

	firestoredriver "cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

const (
	storiesCollection = "stories"
	// Guard documents keyed by fingerprint make duplicate creation fail inside a transaction.
	fingerprintsCollection = "story_fingerprints"
)

// StoryRepository implements repository.StoryRepository on Firestore.
type StoryRepository struct {
	client *firestoredriver.Client
}

// New opens a Firestore client. credentialsFile is ignored when it does not exist
// or when FIRESTORE_EMULATOR_HOST is set; application default credentials apply then.
func New(ctx context.Context, projectID, credentialsFile string) (*StoryRepository, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore: empty project id")
	}

	var opts []option.ClientOption
	if credentialsFile != "" && os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		if _, err := os.Stat(credentialsFile); err == nil {
			opts = append(opts, option.WithCredentialsFile(credentialsFile))
		}
	}

	client, err := firestoredriver.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	return &StoryRepository{client: client}, nil
}

func (r *StoryRepository) Close(_ context.Context) error {
	return r.client.Close()
}

func (r *StoryRepository) stories() *firestoredriver.CollectionRef {
	return r.client.Collection(storiesCollection)
}

func (r *StoryRepository) fingerprints() *firestoredriver.CollectionRef {
	return r.client.Collection(fingerprintsCollection)
}
