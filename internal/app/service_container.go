// Package app wires configuration into running collaborators: the node
// client, the signing key, the per-endpoint service and the optional event
// publisher.
package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"disperse-backend/internal/clients"
	"disperse-backend/internal/config"
	"disperse-backend/internal/events"
	"disperse-backend/internal/services"
	"disperse-backend/internal/txbuilder"
)

// Container holds the long-lived collaborators for the server process.
type Container struct {
	Config  *config.Config
	Client  *ethclient.Client
	ChainID *big.Int
	Signer  services.Signer
	Service *services.DisperseService

	publisher *events.Publisher
}

// NewContainer dials the node, verifies the chain, loads the signing key and
// assembles the service graph.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	client, err := ethclient.DialContext(ctx, cfg.Blockchain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node at %s: %w", cfg.Blockchain.RPCURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}

	signer, err := services.NewPrivateKeySigner(cfg.Blockchain.TxSigner)
	if err != nil {
		client.Close()
		return nil, err
	}

	gasPrice, err := cfg.GasPrice()
	if err != nil {
		client.Close()
		return nil, err
	}

	reader := clients.NewChainReader(client)
	builder := txbuilder.NewBuilder(cfg.ContractAddr())
	submitter := services.NewSubmitter(client, services.NewSingleKeySelector(signer), chainID, services.SubmitterOptions{
		GasPrice: gasPrice,
		GasLimit: cfg.Blockchain.GasLimit,
	})

	var publisher *events.Publisher
	var txEvents services.TxEventPublisher
	if cfg.NATS.URL != "" {
		publisher, err = events.NewPublisher(cfg.NATS.URL, time.Duration(cfg.NATS.Timeout)*time.Second)
		if err != nil {
			client.Close()
			return nil, err
		}
		txEvents = publisher
	}

	logrus.WithFields(logrus.Fields{
		"chain_id": chainID.String(),
		"signer":   signer.Address().Hex(),
		"contract": cfg.ContractAddr().Hex(),
	}).Info("service container initialized")

	return &Container{
		Config:    cfg,
		Client:    client,
		ChainID:   chainID,
		Signer:    signer,
		Service:   services.NewDisperseService(reader, builder, submitter, txEvents),
		publisher: publisher,
	}, nil
}

// Close releases the node and broker connections.
func (c *Container) Close() {
	if c.publisher != nil {
		c.publisher.Close()
	}
	if c.Client != nil {
		c.Client.Close()
	}
}
