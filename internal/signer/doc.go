// Package signer реализует подпись сообщений ключом аккаунта.
//
// Аккаунты — blockchain-derived identities: адрес выводится из
// secp256k1-ключа, аутентификационные сообщения подписываются
// в формате EIP-191 (personal message). Обработчики задач
// обращаются к Signer'у перед каждым аутентифицированным запросом.
package signer
