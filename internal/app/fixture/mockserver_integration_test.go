//go:build integration

package fixture_test

import (
	"context"
	"encoding/json"

	"github.com/lidofinance/substrate-mockrig/internal/env"
	"github.com/lidofinance/substrate-mockrig/internal/pkg/mockserver"
	"github.com/lidofinance/substrate-mockrig/internal/pkg/substrate"
	"github.com/lidofinance/substrate-mockrig/internal/pkg/substrate/entity"
)

type SubstrateMockserverSuite struct {
	mockServerSuite
}

func (s *SubstrateMockserverSuite) SetupSuite() {
	s.start(func(cfg *env.AppConfig) string { return cfg.MockServer.ExpectationsPath })
}

func (s *SubstrateMockserverSuite) TestSystemNameRPC() {
	req := entity.NewRpcRequest(entity.MethodSystemName)

	resp, err := substrate.Call[string](context.Background(), s.fx.RPC, req)
	s.Require().NoError(err)

	s.Equal("2.0", resp.JsonRpc)
	s.Equal(entity.MockClientName, *resp.Result)
	s.Equal(uint64(1), resp.ID)
}

func (s *SubstrateMockserverSuite) TestSystemHealthRPC() {
	resp, err := s.fx.RPC.SystemHealth(context.Background())
	s.Require().NoError(err)

	s.NoError(substrate.ValidateHealth(resp.Result))
}

func (s *SubstrateMockserverSuite) TestChainGetBlockHashRPC() {
	resp, err := s.fx.RPC.ChainGetBlockHash(context.Background())
	s.Require().NoError(err)

	s.NoError(substrate.ValidateBlockHash(*resp.Result))
}

func (s *SubstrateMockserverSuite) TestRequestsAreRecorded() {
	ctx := context.Background()

	_, err := s.fx.RPC.SystemChain(ctx)
	s.Require().NoError(err)

	matcher, err := mockserver.RPCMatcher(entity.MethodSystemChain)
	s.Require().NoError(err)
	s.NoError(s.fx.Admin.Verify(ctx, matcher, &mockserver.Times{AtLeast: 1}))

	recorded, err := s.fx.Admin.RetrieveRequests(ctx, matcher)
	s.Require().NoError(err)
	s.Require().NotEmpty(recorded)

	var body struct {
		Method string `json:"method"`
	}
	s.Require().NoError(json.Unmarshal(recorded[0].Body.JSON, &body))
	s.Equal(entity.MethodSystemChain, body.Method)
}

func (s *SubstrateMockserverSuite) TestUpsertOverridesCannedAnswer() {
	ctx := context.Background()

	exp, err := mockserver.RPCResult(entity.MethodSystemVersion, "9.9.9-override")
	s.Require().NoError(err)
	exp.Priority = 10
	s.Require().NoError(s.fx.Admin.Upsert(ctx, exp))

	resp, err := s.fx.RPC.SystemVersion(ctx)
	s.Require().NoError(err)
	s.Equal("9.9.9-override", *resp.Result)
}
