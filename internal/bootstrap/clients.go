package bootstrap

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"

	"github.com/ferremas-app/ferremas-backend/config"
	"github.com/ferremas-app/ferremas-backend/internal/auth"
)

// Clients agrupa los clientes Firebase que comparte toda la aplicación.
type Clients struct {
	App       *firebase.App
	Firestore *firestore.Client
	Auth      *fbauth.Client
	Messaging *messaging.Client
}

func InitClients(ctx context.Context, cfg *config.FirebaseConfig) (*Clients, error) {
	app, err := auth.InitializeFirebase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	authClient, err := auth.AuthClient(ctx, app)
	if err != nil {
		fs.Close()
		return nil, err
	}

	msg, err := app.Messaging(ctx)
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("messaging client: %w", err)
	}

	return &Clients{App: app, Firestore: fs, Auth: authClient, Messaging: msg}, nil
}

func (c *Clients) Close() {
	if c.Firestore != nil {
		c.Firestore.Close()
	}
}
