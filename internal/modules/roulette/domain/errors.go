package domain

import "errors"

var (
	ErrTableClosed       = errors.New("table is closed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSessionActive     = errors.New("player already logged in")
	ErrPlayerExists      = errors.New("player already exists")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrInvalidPlayer     = errors.New("invalid player id")
	ErrInvalidBet        = errors.New("invalid bet")
	ErrInvalidTarget     = errors.New("invalid bet target")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownRound      = errors.New("unknown round")
)

// Reason is the wire-level rejection code sent to clients.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonTableClosed       Reason = "TABLE_CLOSED"
	ReasonInsufficientFunds Reason = "INSUFFICIENT_FUNDS"
	ReasonSessionActive     Reason = "SESSION_ACTIVE"
	ReasonPlayerExists      Reason = "PLAYER_EXISTS"
	ReasonPlayerNotFound    Reason = "PLAYER_NOT_FOUND"
	ReasonInvalidPlayer     Reason = "INVALID_PLAYER"
	ReasonInvalidBet        Reason = "INVALID_BET"
	ReasonInvalidAmount     Reason = "INVALID_AMOUNT"
	ReasonInternal          Reason = "INTERNAL_ERROR"
)

// ReasonOf maps an error returned by the table to its rejection code.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrTableClosed):
		return ReasonTableClosed
	case errors.Is(err, ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, ErrSessionActive):
		return ReasonSessionActive
	case errors.Is(err, ErrPlayerExists):
		return ReasonPlayerExists
	case errors.Is(err, ErrPlayerNotFound):
		return ReasonPlayerNotFound
	case errors.Is(err, ErrInvalidPlayer):
		return ReasonInvalidPlayer
	case errors.Is(err, ErrInvalidBet), errors.Is(err, ErrInvalidTarget):
		return ReasonInvalidBet
	case errors.Is(err, ErrInvalidAmount):
		return ReasonInvalidAmount
	default:
		return ReasonInternal
	}
}
