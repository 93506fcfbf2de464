package ledger

// documentRegistryABI DocumentRegistryコントラクトのうち利用するメソッドのABI
const documentRegistryABI = `[
	{
		"type": "function",
		"name": "registerDocument",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "ipfsHash", "type": "string"}],
		"outputs": []
	},
	{
		"type": "function",
		"name": "shareDocument",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "ipfsHash", "type": "string"},
			{"name": "recipient", "type": "address"}
		],
		"outputs": []
	},
	{
		"type": "function",
		"name": "getUserDocuments",
		"stateMutability": "view",
		"inputs": [{"name": "user", "type": "address"}],
		"outputs": [{"name": "", "type": "string[]"}]
	},
	{
		"type": "function",
		"name": "documentSenders",
		"stateMutability": "view",
		"inputs": [
			{"name": "", "type": "address"},
			{"name": "", "type": "string"}
		],
		"outputs": [{"name": "", "type": "address"}]
	}
]`

const (
	methodRegisterDocument = "registerDocument"
	methodShareDocument    = "shareDocument"
	methodUserDocuments    = "getUserDocuments"
	methodDocumentSenders  = "documentSenders"
)
