package ftpd

// Handle the "USER" command.
func (s *Session) handleUSER(param string) error {
	s.mu.Lock()
	s.user = param
	s.mu.Unlock()

	s.setState(stateAwaitingPass)
	s.writeCode(StatusUserOK, "please specify the password")

	return nil
}

// Handle the "PASS" command.
func (s *Session) handlePASS(param string) error {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()

	if s.server.auth.AuthUser(user, param) {
		s.setState(stateAuthenticated)
		s.writeCode(StatusUserLoggedIn, "login successful")
	} else {
		s.setState(stateAwaitingUser)
		s.writeCode(StatusNotLoggedIn, "authentication failed")
	}

	return nil
}

// Handle the "QUIT" command.
func (s *Session) handleQUIT(_ string) error {
	s.writeCode(StatusClosingControlConn, "goodbye")
	s.setState(stateClosed)

	return nil
}
