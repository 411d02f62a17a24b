package upi

// RegisterUserRequest carries a new user registration to the bank.
type RegisterUserRequest struct {
	Name           string  `json:"name"`
	BankCode       string  `json:"bank_code"`
	MobileNumber   string  `json:"mobile_number"`
	Password       string  `json:"password"`
	PIN            string  `json:"pin"`
	InitialBalance float64 `json:"initial_balance"`
}

func (r *RegisterUserRequest) Validate() error {
	switch {
	case r.Name == "":
		return missingField("name")
	case r.BankCode == "":
		return missingField("bank_code")
	case r.MobileNumber == "":
		return missingField("mobile_number")
	case r.Password == "":
		return missingField("password")
	case r.PIN == "":
		return missingField("pin")
	}
	return nil
}

type RegisterUserResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	MMID    string `json:"mmid,omitempty"`
}

func (r *RegisterUserResponse) Validate() error { return nil }

type RegisterMerchantRequest struct {
	Name           string  `json:"name"`
	BankCode       string  `json:"bank_code"`
	Password       string  `json:"password"`
	InitialBalance float64 `json:"initial_balance"`
}

func (r *RegisterMerchantRequest) Validate() error {
	switch {
	case r.Name == "":
		return missingField("name")
	case r.BankCode == "":
		return missingField("bank_code")
	case r.Password == "":
		return missingField("password")
	}
	return nil
}

type RegisterMerchantResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	MerchantID string `json:"merchant_id,omitempty"`
}

func (r *RegisterMerchantResponse) Validate() error { return nil }

// AuthenticateUserRequest authenticates by permanent identifier or by the
// mobile-linked alias identifier, whichever is set.
type AuthenticateUserRequest struct {
	UID      string `json:"uid,omitempty"`
	MMID     string `json:"mmid,omitempty"`
	Password string `json:"password"`
}

func (r *AuthenticateUserRequest) Validate() error {
	if r.UID == "" && r.MMID == "" {
		return missingField("uid or mmid")
	}
	if r.Password == "" {
		return missingField("password")
	}
	return nil
}

type AuthenticateUserResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	MMID    string `json:"mmid,omitempty"`
}

func (r *AuthenticateUserResponse) Validate() error { return nil }

type VerifyPINRequest struct {
	UserID string `json:"user_id"`
	PIN    string `json:"pin"`
}

func (r *VerifyPINRequest) Validate() error {
	switch {
	case r.UserID == "":
		return missingField("user_id")
	case r.PIN == "":
		return missingField("pin")
	}
	return nil
}

type VerifyPINResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (r *VerifyPINResponse) Validate() error { return nil }

// ProcessTransactionRequest is the terminal-to-bank commit request, carrying
// permanent identifiers on both sides.
type ProcessTransactionRequest struct {
	SenderID    string   `json:"sender_id"`
	ReceiverID  string   `json:"receiver_id"`
	Amount      *float64 `json:"amount"`
	Description string   `json:"description,omitempty"`
}

func (r *ProcessTransactionRequest) Validate() error {
	switch {
	case r.SenderID == "":
		return missingField("sender_id")
	case r.ReceiverID == "":
		return missingField("receiver_id")
	case r.Amount == nil:
		return missingField("amount")
	}
	return nil
}

type ProcessTransactionResponse struct {
	Success       bool    `json:"success"`
	Error         string  `json:"error,omitempty"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
}

func (r *ProcessTransactionResponse) Validate() error { return nil }

// TransactionRequest is the device-to-terminal request, carrying the
// ephemeral merchant identifier instead of the permanent one.
type TransactionRequest struct {
	VMID        string   `json:"vmid"`
	Timestamp   string   `json:"timestamp"`
	Amount      *float64 `json:"amount"`
	Description string   `json:"desc,omitempty"`
	SenderID    string   `json:"sender_id"`
}

func (r *TransactionRequest) Validate() error {
	switch {
	case r.VMID == "":
		return missingField("vmid")
	case r.Timestamp == "":
		return missingField("timestamp")
	case r.Amount == nil:
		return missingField("amount")
	case r.SenderID == "":
		return missingField("sender_id")
	}
	return nil
}

// PaymentConfirmation informs the terminal of the final outcome observed by
// the device so it can reconcile its pending transaction.
type PaymentConfirmation struct {
	TransactionID string   `json:"transaction_id"`
	Amount        *float64 `json:"amount"`
	Status        string   `json:"status"`
}

func (r *PaymentConfirmation) Validate() error {
	switch {
	case r.TransactionID == "":
		return missingField("transaction_id")
	case r.Amount == nil:
		return missingField("amount")
	case r.Status == "":
		return missingField("status")
	}
	return nil
}

type PaymentConfirmationAck struct {
	Success bool `json:"success"`
}

func (r *PaymentConfirmationAck) Validate() error { return nil }

type GetMerchantInfoRequest struct {
	MerchantID string `json:"merchant_id"`
}

func (r *GetMerchantInfoRequest) Validate() error {
	if r.MerchantID == "" {
		return missingField("merchant_id")
	}
	return nil
}

type GetMerchantInfoResponse struct {
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	MerchantName string `json:"merchant_name,omitempty"`
	BankCode     string `json:"bank_code,omitempty"`
}

func (r *GetMerchantInfoResponse) Validate() error { return nil }
