package model

// User is an account. Password holds a bcrypt hash and is never serialized to clients.
type User struct {
	Base        `bson:",inline"`
	NameSurname string    `bson:"NameSurname" json:"NameSurname"`
	UserName    string    `bson:"UserName" json:"UserName"`
	Password    string    `bson:"Password" json:"-"`
	Role        *UserRole `bson:"Role,omitempty" json:"Role,omitempty"`
	ImageURL    string    `bson:"ImageUrl,omitempty" json:"ImageUrl,omitempty"`
}

type UserRole struct {
	RoleType string `bson:"RoleType" json:"RoleType"`
}

const RoleMember = "Member"
