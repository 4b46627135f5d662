package registry

// Subconjunto del ABI de EthereumDIDRegistry (ERC-1056) que usa el servicio:
// lecturas de registro y las dos escrituras que se preparan para firma externa.
const registryABI = `[
  {
    "constant": true,
    "inputs": [{"name": "", "type": "address"}],
    "name": "changed",
    "outputs": [{"name": "", "type": "uint256"}],
    "payable": false,
    "stateMutability": "view",
    "type": "function"
  },
  {
    "constant": true,
    "inputs": [{"name": "identity", "type": "address"}],
    "name": "identityOwner",
    "outputs": [{"name": "", "type": "address"}],
    "payable": false,
    "stateMutability": "view",
    "type": "function"
  },
  {
    "constant": false,
    "inputs": [
      {"name": "identity", "type": "address"},
      {"name": "name", "type": "bytes32"},
      {"name": "value", "type": "bytes"},
      {"name": "validity", "type": "uint256"}
    ],
    "name": "setAttribute",
    "outputs": [],
    "payable": false,
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "constant": false,
    "inputs": [
      {"name": "identity", "type": "address"},
      {"name": "newOwner", "type": "address"}
    ],
    "name": "changeOwner",
    "outputs": [],
    "payable": false,
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`
