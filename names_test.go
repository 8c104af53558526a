package dbus

import (
	. "gopkg.in/check.v1"
)

func (s *S) TestValidateObjectPath(c *C) {
	good := []ObjectPath{"/", "/org", "/org/freedesktop/DBus", "/a1/b_2"}
	for _, p := range good {
		c.Check(validateObjectPath(p), IsNil, Commentf("path %q", p))
	}
	bad := []ObjectPath{"", "org/freedesktop", "/org/", "/org//DBus", "/org/free.desktop"}
	for _, p := range bad {
		c.Check(validateObjectPath(p), NotNil, Commentf("path %q", p))
	}
}

func (s *S) TestValidateInterfaceName(c *C) {
	c.Check(validateInterfaceName("org.freedesktop.DBus"), IsNil)
	c.Check(validateInterfaceName("org"), NotNil)
	c.Check(validateInterfaceName("org.1freedesktop"), NotNil)
	c.Check(validateInterfaceName(""), NotNil)
}

func (s *S) TestValidateMemberName(c *C) {
	c.Check(validateMemberName("NameHasOwner"), IsNil)
	c.Check(validateMemberName(""), NotNil)
	c.Check(validateMemberName("has.dot"), NotNil)
	c.Check(validateMemberName("1leadingdigit"), NotNil)
}

func (s *S) TestValidateBusName(c *C) {
	c.Check(validateBusName("org.freedesktop.DBus"), IsNil)
	c.Check(validateBusName(":1.42"), IsNil)
	c.Check(validateBusName(":1"), NotNil)
	c.Check(validateBusName(""), NotNil)
}

func (s *S) TestValidateErrorName(c *C) {
	c.Check(validateErrorName("org.freedesktop.DBus.Error.Failed"), IsNil)
	c.Check(validateErrorName("Failed"), NotNil)
}
