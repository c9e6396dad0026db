// internal/infra/firestore/client.go
package firestoreinfra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const emulatorEnv = "FIRESTORE_EMULATOR_HOST"

// ClientWrapper holds the Firestore client used by the rule, cart and catalog stores.
type ClientWrapper struct {
	Client    *firestore.Client
	ProjectID string
	Emulator  string
}

// NewClient は Firestore クライアントを初期化し、疎通確認まで行います。
// credentialsFile が空文字の場合は ADC を使用します (emulator 利用時は無視)。
func NewClient(ctx context.Context, projectID, credentialsFile string, logger *zap.Logger) (*ClientWrapper, error) {
	if projectID == "" {
		return nil, errors.New("firestore: project id is empty")
	}

	emulator := os.Getenv(emulatorEnv)

	var opts []option.ClientOption
	if credentialsFile != "" && emulator == "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	cw := &ClientWrapper{Client: client, ProjectID: projectID, Emulator: emulator}
	if err := cw.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("firestore connected",
			zap.String("project", projectID),
			zap.String("emulator", emulator),
		)
	}
	return cw, nil
}

// Ping reads at most one shop document; an empty collection is fine.
func (cw *ClientWrapper) Ping(ctx context.Context) error {
	if cw == nil || cw.Client == nil {
		return errors.New("firestore: client is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	it := cw.Client.Collection("shops").Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

// Close は Firestore クライアントをクローズします。
func (cw *ClientWrapper) Close() error {
	if cw == nil || cw.Client == nil {
		return nil
	}
	return cw.Client.Close()
}
