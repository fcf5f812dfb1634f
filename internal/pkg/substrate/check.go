package substrate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lidofinance/substrate-mockrig/internal/pkg/substrate/entity"
)

var ErrShape = errors.New("unexpected response shape")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

const (
	ModeMock  = "mock"
	ModeProxy = "proxy"
)

func ValidateEnvelope[T any](req entity.RpcRequest, resp *entity.RpcResponse[T]) error {
	if resp == nil {
		return fmt.Errorf("%s: nil response: %w", req.Method, ErrShape)
	}
	if resp.JsonRpc != entity.Version {
		return fmt.Errorf("%s: jsonrpc %q, want %q: %w", req.Method, resp.JsonRpc, entity.Version, ErrShape)
	}
	if resp.ID != req.ID {
		return fmt.Errorf("%s: id %d, want %d: %w", req.Method, resp.ID, req.ID, ErrShape)
	}

	return nil
}

func ValidateMockName(name string) error {
	if name != entity.MockClientName {
		return fmt.Errorf("system_name %q, want %q: %w", name, entity.MockClientName, ErrShape)
	}

	return nil
}

func ValidateName(name string) error {
	if err := validate.Var(name, "required"); err != nil {
		return fmt.Errorf("system_name is empty: %w", ErrShape)
	}

	return nil
}

func ValidateHealth(health *entity.Health) error {
	if health == nil {
		return fmt.Errorf("system_health is nil: %w", ErrShape)
	}

	if err := validate.Struct(health); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			missing := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				missing = append(missing, fe.Field())
			}
			return fmt.Errorf("system_health missing %v: %w", missing, ErrShape)
		}
		return err
	}

	return nil
}

func ValidateBlockHash(hash string) error {
	if err := validate.Var(hash, entity.BlockHashRule); err != nil {
		return fmt.Errorf("block hash %q is not 0x + 64 hex: %w", hash, ErrShape)
	}

	return nil
}

type Report struct {
	Method string
	Value  any
	Err    error
}

type Checker struct {
	client *Client
}

func NewChecker(client *Client) *Checker {
	return &Checker{client: client}
}

// Run executes the checks of the given mode, one call per method, and
// returns one report entry per method in call order.
func (c *Checker) Run(ctx context.Context, mode string) ([]Report, error) {
	if mode != ModeMock && mode != ModeProxy {
		return nil, fmt.Errorf("unknown check mode %q", mode)
	}

	reports := make([]Report, 0, 3)

	nameReq := entity.NewRpcRequest(entity.MethodSystemName)
	name, err := Call[string](ctx, c.client, nameReq)
	if err == nil {
		err = ValidateEnvelope(nameReq, name)
	}
	if err == nil {
		if mode == ModeMock {
			err = ValidateMockName(*name.Result)
		} else {
			err = ValidateName(*name.Result)
		}
	}
	reports = append(reports, report(entity.MethodSystemName, name, err))

	healthReq := entity.NewRpcRequest(entity.MethodSystemHealth)
	health, err := Call[entity.Health](ctx, c.client, healthReq)
	if err == nil {
		err = ValidateEnvelope(healthReq, health)
	}
	if err == nil {
		err = ValidateHealth(health.Result)
	}
	reports = append(reports, report(entity.MethodSystemHealth, health, err))

	hashReq := entity.NewRpcRequest(entity.MethodChainGetBlockHash)
	hash, err := Call[string](ctx, c.client, hashReq)
	if err == nil {
		err = ValidateEnvelope(hashReq, hash)
	}
	if err == nil {
		err = ValidateBlockHash(*hash.Result)
	}
	reports = append(reports, report(entity.MethodChainGetBlockHash, hash, err))

	return reports, nil
}

func report[T any](method string, resp *entity.RpcResponse[T], err error) Report {
	r := Report{Method: method, Err: err}
	if resp != nil && resp.Result != nil {
		r.Value = *resp.Result
	}

	return r
}

func Failed(reports []Report) bool {
	for _, r := range reports {
		if r.Err != nil {
			return true
		}
	}

	return false
}
