package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client fala JSON-RPC 2.0 com um nó da rede.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// RPCError é um erro retornado pelo próprio nó (não de transporte).
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("node http %d", res.StatusCode)
	}
	var rpcRes rpcResponse
	if err := json.NewDecoder(res.Body).Decode(&rpcRes); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if rpcRes.Error != nil {
		return rpcRes.Error
	}
	if out != nil {
		if err := json.Unmarshal(rpcRes.Result, out); err != nil {
			return fmt.Errorf("decode rpc result: %w", err)
		}
	}
	return nil
}

// GetBlockCount retorna a altura corrente da chain.
func (c *Client) GetBlockCount(ctx context.Context) (uint32, error) {
	var count uint32
	if err := c.call(ctx, "getblockcount", nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// InvokeResult é o resultado de uma invocação de leitura ou simulação.
type InvokeResult struct {
	State       string      `json:"state"` // "HALT" | "FAULT"
	GasConsumed string      `json:"gasconsumed"`
	Exception   string      `json:"exception,omitempty"`
	Stack       []StackItem `json:"stack"`
}

// GasConsumedInt converte o custo de execução reportado pelo nó.
func (r *InvokeResult) GasConsumedInt() (int64, error) {
	return strconv.ParseInt(r.GasConsumed, 10, 64)
}

// Faulted indica que a execução simulada abortou na VM.
func (r *InvokeResult) Faulted() bool {
	return strings.EqualFold(r.State, "FAULT")
}

// paramJSON é a forma wire de um ContractParam.
type paramJSON struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func marshalParams(params []ContractParam) []paramJSON {
	out := make([]paramJSON, 0, len(params))
	for _, p := range params {
		j := paramJSON{Type: string(p.Type)}
		switch p.Type {
		case ParamHash160:
			j.Value = p.Hash.String()
		case ParamByteArray:
			j.Value = base64.StdEncoding.EncodeToString(p.Bytes)
		case ParamString:
			j.Value = p.Str
		case ParamInteger:
			j.Value = strconv.FormatInt(p.Int, 10)
		}
		out = append(out, j)
	}
	return out
}

// InvokeFunction executa uma chamada de leitura contra o contrato. Não
// exige assinatura e não custa taxas; é idempotente e pode ser repetida.
func (c *Client) InvokeFunction(ctx context.Context, contract Uint160, operation string, params []ContractParam) (*InvokeResult, error) {
	var res InvokeResult
	err := c.call(ctx, "invokefunction", []any{contract.String(), operation, marshalParams(params)}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type signerJSON struct {
	Account string `json:"account"`
	Scopes  string `json:"scopes"`
}

// InvokeScript simula a execução de um script montado, com os signers da
// transação, para estimar o system fee.
func (c *Client) InvokeScript(ctx context.Context, script []byte, signers []Signer) (*InvokeResult, error) {
	sj := make([]signerJSON, 0, len(signers))
	for _, s := range signers {
		sj = append(sj, signerJSON{Account: s.Account.String(), Scopes: s.Scope.String()})
	}
	var res InvokeResult
	err := c.call(ctx, "invokescript", []any{base64.StdEncoding.EncodeToString(script), sj}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CalculateNetworkFee pede ao nó a taxa de rede para a transação
// serializada. Deve rodar com o tamanho final de script e atributos.
func (c *Client) CalculateNetworkFee(ctx context.Context, rawTx []byte) (int64, error) {
	var res struct {
		NetworkFee string `json:"networkfee"`
	}
	err := c.call(ctx, "calculatenetworkfee", []any{base64.StdEncoding.EncodeToString(rawTx)}, &res)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(res.NetworkFee, 10, 64)
}

// SendRawTransaction transmite a transação assinada e retorna o hash
// aceito pelo nó.
func (c *Client) SendRawTransaction(ctx context.Context, rawTx []byte) (string, error) {
	var res struct {
		Hash string `json:"hash"`
	}
	err := c.call(ctx, "sendrawtransaction", []any{base64.StdEncoding.EncodeToString(rawTx)}, &res)
	if err != nil {
		return "", err
	}
	return res.Hash, nil
}
