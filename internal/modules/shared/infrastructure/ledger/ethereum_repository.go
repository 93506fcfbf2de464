package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"docchain/internal/config"
	"docchain/internal/modules/document/domain"
)

// chainBackend ethclient.Client のうち利用するメソッド
type chainBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// rawCaller ノード管理アカウントでの送信に使うJSON-RPC呼び出し
type rawCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// EthereumRepository DocumentRegistryコントラクトのリポジトリ実装
type EthereumRepository struct {
	backend  chainBackend
	caller   rawCaller
	contract common.Address
	abi      abi.ABI

	key    *ecdsa.PrivateKey
	signer common.Address

	mu      sync.Mutex // chainIDの遅延取得とnonce採番を直列化
	chainID *big.Int

	pollInterval time.Duration
	closeFn      func()
}

// NewEthereumRepository RPCに接続してEthereumRepositoryを作成
func NewEthereumRepository(ctx context.Context, cfg *config.EthereumConfig) (*EthereumRepository, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum rpc: %w", err)
	}

	repo, err := newEthereumRepository(ethclient.NewClient(rpcClient), rpcClient, cfg)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	repo.closeFn = rpcClient.Close
	return repo, nil
}

func newEthereumRepository(backend chainBackend, caller rawCaller, cfg *config.EthereumConfig) (*EthereumRepository, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address: %q", cfg.ContractAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(documentRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}

	repo := &EthereumRepository{
		backend:      backend,
		caller:       caller,
		contract:     common.HexToAddress(cfg.ContractAddress),
		abi:          parsed,
		pollInterval: time.Second,
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		repo.key = key
		repo.signer = crypto.PubkeyToAddress(key.PublicKey)
	}
	if cfg.ChainID > 0 {
		repo.chainID = big.NewInt(cfg.ChainID)
	}

	return repo, nil
}

// RegisterDocument ownerのアカウントからregisterDocumentを送信
func (r *EthereumRepository) RegisterDocument(ctx context.Context, owner, ipfsHash string) error {
	return r.transact(ctx, common.HexToAddress(owner), methodRegisterDocument, ipfsHash)
}

// ShareDocument senderのアカウントからshareDocumentを送信
func (r *EthereumRepository) ShareDocument(ctx context.Context, sender, ipfsHash, recipient string) error {
	return r.transact(ctx, common.HexToAddress(sender), methodShareDocument, ipfsHash, common.HexToAddress(recipient))
}

// UserDocuments userに共有されたドキュメントのCID一覧
func (r *EthereumRepository) UserDocuments(ctx context.Context, user string) ([]string, error) {
	values, err := r.call(ctx, methodUserDocuments, common.HexToAddress(user))
	if err != nil {
		return nil, err
	}
	hashes, ok := values[0].([]string)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", methodUserDocuments, values[0])
	}
	return hashes, nil
}

// DocumentSender userにipfsHashを共有した送信者のアドレス
func (r *EthereumRepository) DocumentSender(ctx context.Context, user, ipfsHash string) (string, error) {
	values, err := r.call(ctx, methodDocumentSenders, common.HexToAddress(user), ipfsHash)
	if err != nil {
		return "", err
	}
	sender, ok := values[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected %s output type %T", methodDocumentSenders, values[0])
	}
	return sender.Hex(), nil
}

// Close RPC接続を閉じる
func (r *EthereumRepository) Close() error {
	if r.closeFn != nil {
		r.closeFn()
	}
	return nil
}

func (r *EthereumRepository) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	values, err := r.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}

func (r *EthereumRepository) transact(ctx context.Context, from common.Address, method string, args ...interface{}) error {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	gas, err := r.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &r.contract, Data: data})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrGasEstimation, method, err)
	}
	gasPrice, err := r.backend.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrGasEstimation, method, err)
	}

	var txHash common.Hash
	if r.key != nil && from == r.signer {
		txHash, err = r.sendSigned(ctx, gas, gasPrice, data)
	} else {
		txHash, err = r.sendFromNode(ctx, from, gas, gasPrice, data)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrTransactionFailed, method, err)
	}

	slog.Debug("transaction sent",
		"method", method,
		"from", from.Hex(),
		"tx", txHash.Hex(),
		"gas", gas,
	)

	receipt, err := r.waitMined(ctx, txHash)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrTransactionFailed, method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s reverted in tx %s", domain.ErrTransactionFailed, method, txHash.Hex())
	}

	slog.Info("transaction mined",
		"method", method,
		"tx", txHash.Hex(),
		"block", receipt.BlockNumber,
		"gas_used", receipt.GasUsed,
	)
	return nil
}

// sendSigned 設定された秘密鍵で署名して送信
func (r *EthereumRepository) sendSigned(ctx context.Context, gas uint64, gasPrice *big.Int, data []byte) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.chainID == nil {
		chainID, err := r.backend.ChainID(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("chain id: %w", err)
		}
		r.chainID = chainID
	}

	nonce, err := r.backend.PendingNonceAt(ctx, r.signer)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}

	tx := types.NewTransaction(nonce, r.contract, big.NewInt(0), gas, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(r.chainID), r.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if err := r.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

// sendFromNode ノードが管理するアカウントとして送信
func (r *EthereumRepository) sendFromNode(ctx context.Context, from common.Address, gas uint64, gasPrice *big.Int, data []byte) (common.Hash, error) {
	args := map[string]interface{}{
		"from":     from,
		"to":       r.contract,
		"gas":      hexutil.Uint64(gas),
		"gasPrice": (*hexutil.Big)(gasPrice),
		"data":     hexutil.Bytes(data),
	}

	var txHash common.Hash
	if err := r.caller.CallContext(ctx, &txHash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return txHash, nil
}

// waitMined レシートが取得できるまでポーリング
func (r *EthereumRepository) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := r.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
