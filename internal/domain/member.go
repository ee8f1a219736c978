package domain

// Password is the host's derived credential. Both fields are base64 text.
type Password struct {
	Value string `bson:"value" json:"-"`
	Salt  string `bson:"salt" json:"-"`
}

type Member struct {
	Identity   `bson:",inline"`
	Password   *Password  `bson:"password,omitempty" json:"-"`
	Connection Connection `bson:"connection" json:"connection"`
}

func NewHost(identity Identity, password Password) Member {
	return Member{
		Identity:   identity,
		Password:   &password,
		Connection: Connection{Status: StatusDisconnected},
	}
}

func NewGuest(identity Identity) Member {
	return Member{
		Identity:   identity,
		Connection: Connection{Status: StatusDisconnected},
	}
}

func (m Member) clone() Member {
	out := m
	if m.Password != nil {
		p := *m.Password
		out.Password = &p
	}
	if m.Connection.ConnectedAt != nil {
		t := *m.Connection.ConnectedAt
		out.Connection.ConnectedAt = &t
	}
	if m.Connection.DisconnectedAt != nil {
		t := *m.Connection.DisconnectedAt
		out.Connection.DisconnectedAt = &t
	}
	return out
}
