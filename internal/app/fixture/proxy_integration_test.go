//go:build integration

package fixture_test

import (
	"context"
	"strings"

	"github.com/lidofinance/substrate-mockrig/internal/env"
	"github.com/lidofinance/substrate-mockrig/internal/pkg/substrate"
	"github.com/lidofinance/substrate-mockrig/internal/pkg/substrate/entity"
)

// SubstrateProxyForwardingSuite forwards every call to a live Polkadot node,
// so it only runs with NETWORK_TESTS=true.
type SubstrateProxyForwardingSuite struct {
	mockServerSuite
}

func (s *SubstrateProxyForwardingSuite) SetupSuite() {
	cfg, err := env.Read(repoRoot + "/.env")
	s.Require().NoError(err)
	if !cfg.AppConfig.NetworkTests {
		s.T().Skip("NETWORK_TESTS is not enabled")
	}

	s.start(func(cfg *env.AppConfig) string { return cfg.MockServer.ProxyExpectationPath })
}

func (s *SubstrateProxyForwardingSuite) TestSystemNameProxy() {
	req := entity.NewRpcRequest(entity.MethodSystemName)

	resp, err := substrate.Call[string](context.Background(), s.fx.RPC, req)
	s.Require().NoError(err)
	s.NoError(substrate.ValidateEnvelope(req, resp))

	s.T().Logf("Live Polkadot system_name: %s", *resp.Result)
	s.NoError(substrate.ValidateName(*resp.Result))
}

func (s *SubstrateProxyForwardingSuite) TestSystemHealthProxy() {
	req := entity.NewRpcRequest(entity.MethodSystemHealth)

	resp, err := substrate.Call[entity.Health](context.Background(), s.fx.RPC, req)
	s.Require().NoError(err)
	s.NoError(substrate.ValidateEnvelope(req, resp))

	health := resp.Result
	s.Require().NotNil(health)
	s.NotNil(health.Peers, "peers")
	s.NotNil(health.IsSyncing, "isSyncing")
	s.NotNil(health.ShouldHavePeers, "shouldHavePeers")
}

func (s *SubstrateProxyForwardingSuite) TestChainGetBlockHashProxy() {
	req := entity.NewRpcRequest(entity.MethodChainGetBlockHash)

	resp, err := substrate.Call[string](context.Background(), s.fx.RPC, req)
	s.Require().NoError(err)
	s.NoError(substrate.ValidateEnvelope(req, resp))

	hash := *resp.Result
	s.T().Logf("Live Polkadot latest block hash: %s", hash)
	s.True(strings.HasPrefix(hash, "0x"))
	s.Len(hash, 66)
	s.NoError(substrate.ValidateBlockHash(hash))
}
