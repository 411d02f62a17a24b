package bank

import (
	"context"
	"log/slog"

	"github.com/upisim/upig/internal/transport"
	"github.com/upisim/upig/internal/upi"
)

// Server translates wire envelopes into processor calls. Validation and
// authentication failures travel back as typed failure payloads, never as
// dropped requests.
type Server struct {
	logger    *slog.Logger
	processor *Processor
}

func NewServer(logger *slog.Logger, processor *Processor) *Server {
	return &Server{
		logger:    logger.With(slog.String("module", "bank")),
		processor: processor,
	}
}

// RegisterHandlers installs all bank-side message handlers on the transport
// server.
func (s *Server) RegisterHandlers(srv *transport.Server) {
	srv.Register(upi.MsgRegisterUser, s.handleRegisterUser)
	srv.Register(upi.MsgRegisterMerchant, s.handleRegisterMerchant)
	srv.Register(upi.MsgAuthenticateUser, s.handleAuthenticateUser)
	srv.Register(upi.MsgVerifyPIN, s.handleVerifyPIN)
	srv.Register(upi.MsgProcessTransaction, s.handleProcessTransaction)
	srv.Register(upi.MsgGetMerchantInfo, s.handleGetMerchantInfo)
}

func (s *Server) respond(req *upi.Message, msgType string, payload any) *upi.Message {
	res, err := upi.NewResponse(req, msgType, upi.RoleBank, payload)
	if err != nil {
		s.logger.Error("Failed to build response", slog.String("err", err.Error()))
		return nil
	}
	return res
}

func (s *Server) handleRegisterUser(_ context.Context, req *upi.Message) *upi.Message {
	payload := &upi.RegisterUserRequest{}
	err := req.DecodePayload(payload)
	if err != nil {
		return s.respond(req, upi.MsgRegisterUserResponse, &upi.RegisterUserResponse{Error: err.Error()})
	}

	user, err := s.processor.RegisterUser(
		payload.Name, payload.BankCode, payload.MobileNumber, payload.Password, payload.PIN, payload.InitialBalance)
	if err != nil {
		return s.respond(req, upi.MsgRegisterUserResponse, &upi.RegisterUserResponse{Error: err.Error()})
	}

	return s.respond(req, upi.MsgRegisterUserResponse, &upi.RegisterUserResponse{
		Success: true,
		UserID:  user.UID,
		MMID:    user.MMID,
	})
}

func (s *Server) handleRegisterMerchant(_ context.Context, req *upi.Message) *upi.Message {
	payload := &upi.RegisterMerchantRequest{}
	err := req.DecodePayload(payload)
	if err != nil {
		return s.respond(req, upi.MsgRegisterMerchantResponse, &upi.RegisterMerchantResponse{Error: err.Error()})
	}

	merchant, err := s.processor.RegisterMerchant(payload.Name, payload.BankCode, payload.Password, payload.InitialBalance)
	if err != nil {
		return s.respond(req, upi.MsgRegisterMerchantResponse, &upi.RegisterMerchantResponse{Error: err.Error()})
	}

	return s.respond(req, upi.MsgRegisterMerchantResponse, &upi.RegisterMerchantResponse{
		Success:    true,
		MerchantID: merchant.MID,
	})
}

func (s *Server) handleAuthenticateUser(_ context.Context, req *upi.Message) *upi.Message {
	payload := &upi.AuthenticateUserRequest{}
	err := req.DecodePayload(payload)
	if err != nil {
		return s.respond(req, upi.MsgAuthenticateUserResponse, &upi.AuthenticateUserResponse{Error: err.Error()})
	}

	user, err := s.processor.Authenticate(payload.UID, payload.MMID, payload.Password)
	if err != nil {
		return s.respond(req, upi.MsgAuthenticateUserResponse, &upi.AuthenticateUserResponse{Error: err.Error()})
	}

	return s.respond(req, upi.MsgAuthenticateUserResponse, &upi.AuthenticateUserResponse{
		Success: true,
		UserID:  user.UID,
		MMID:    user.MMID,
	})
}

func (s *Server) handleVerifyPIN(_ context.Context, req *upi.Message) *upi.Message {
	payload := &upi.VerifyPINRequest{}
	err := req.DecodePayload(payload)
	if err != nil {
		return s.respond(req, upi.MsgVerifyPINResponse, &upi.VerifyPINResponse{Error: err.Error()})
	}

	err = s.processor.VerifyPIN(payload.UserID, payload.PIN)
	if err != nil {
		return s.respond(req, upi.MsgVerifyPINResponse, &upi.VerifyPINResponse{Error: err.Error()})
	}

	return s.respond(req, upi.MsgVerifyPINResponse, &upi.VerifyPINResponse{Success: true})
}

func (s *Server) handleProcessTransaction(_ context.Context, req *upi.Message) *upi.Message {
	payload := &upi.ProcessTransactionRequest{}
	err := req.DecodePayload(payload)
	if err != nil {
		return s.respond(req, upi.MsgProcessTransactionResponse, &upi.ProcessTransactionResponse{Error: err.Error()})
	}

	transactionID, err := s.processor.ProcessTransaction(
		payload.SenderID, payload.ReceiverID, *payload.Amount, payload.Description)
	if err != nil {
		return s.respond(req, upi.MsgProcessTransactionResponse, &upi.ProcessTransactionResponse{Error: err.Error()})
	}

	return s.respond(req, upi.MsgProcessTransactionResponse, &upi.ProcessTransactionResponse{
		Success:       true,
		TransactionID: transactionID,
		Amount:        *payload.Amount,
	})
}

func (s *Server) handleGetMerchantInfo(_ context.Context, req *upi.Message) *upi.Message {
	payload := &upi.GetMerchantInfoRequest{}
	err := req.DecodePayload(payload)
	if err != nil {
		return s.respond(req, upi.MsgGetMerchantInfoResponse, &upi.GetMerchantInfoResponse{Error: err.Error()})
	}

	merchant, err := s.processor.MerchantInfo(payload.MerchantID)
	if err != nil {
		return s.respond(req, upi.MsgGetMerchantInfoResponse, &upi.GetMerchantInfoResponse{Error: err.Error()})
	}

	return s.respond(req, upi.MsgGetMerchantInfoResponse, &upi.GetMerchantInfoResponse{
		Success:      true,
		MerchantName: merchant.Name,
		BankCode:     merchant.BankCode,
	})
}
