package model

// Student is one child visible to the authenticated parent account.
// The roster is rebuilt on every login and immutable in between.
type Student struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ClassID    *int64 `json:"classId,omitempty"`
	SchoolID   *int64 `json:"schoolId,omitempty"`
	SchoolName string `json:"schoolName,omitempty"`
}

// SchoolAccount is one entry of a multi-school login response. The caller
// must drive a secondary per-school login for each selected entry.
type SchoolAccount struct {
	InstitutionID   int64  `json:"institutionId"`
	InstitutionName string `json:"institutionName"`
}

type LoginStudent struct {
	ID        int64  `json:"id"`
	ClassID   *int64 `json:"classId"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

type AssociatedParent struct {
	Student *LoginStudent `json:"student"`
}

type LoginUser struct {
	InstitutionID     *int64             `json:"institutionId"`
	AssociatedParents []AssociatedParent `json:"associatedParents"`
}

type LoginResponse struct {
	JWT              string          `json:"jwt"`
	User             *LoginUser      `json:"user"`
	MultipleAccounts []SchoolAccount `json:"multipleAccounts"`
}

type LoginRequest struct {
	EmailOrUsername string  `json:"emailOrUsername"`
	Password        string  `json:"password"`
	Hash            string  `json:"hash"`
	MobileApp       bool    `json:"mobileApp"`
	UserID          *int64  `json:"userId"`
	TwoFactorCode   *string `json:"twoFactorCode"`
	InstitutionID   *int64  `json:"institutionId"`
}

type SaltRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	UserID          *int64 `json:"userId"`
	InstitutionID   *int64 `json:"institutionId"`
}
